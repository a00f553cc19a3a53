package reposave

import (
	"testing"

	"github.com/gizzahub/gzh-crawl-core/internal/model"
)

func TestValidateDescriptorRequiresIDAndName(t *testing.T) {
	v := NewValidator()
	d := model.RepositoryDescriptor{Kind: model.KindFilesystem, Origin: "/tmp/demo"}
	if err := v.ValidateDescriptor(&d); err == nil {
		t.Fatal("expected an error for a missing id")
	}
}

func TestValidateDescriptorRejectsUnknownKind(t *testing.T) {
	v := NewValidator()
	d := model.RepositoryDescriptor{ID: "1", Name: "demo", Kind: "BOGUS", Origin: "x"}
	if err := v.ValidateDescriptor(&d); err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
}

func TestValidateDescriptorRequiresOriginForGit(t *testing.T) {
	v := NewValidator()
	d := model.RepositoryDescriptor{ID: "1", Name: "demo", Kind: model.KindGit}
	if err := v.ValidateDescriptor(&d); err == nil {
		t.Fatal("expected an error for a GIT descriptor without an origin")
	}
}

func TestValidateDescriptorAcceptsValidFilesystem(t *testing.T) {
	v := NewValidator()
	d := model.RepositoryDescriptor{ID: "1", Name: "demo", Kind: model.KindFilesystem, Origin: "/tmp/demo"}
	if err := v.ValidateDescriptor(&d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDescriptorRejectsMalformedCron(t *testing.T) {
	v := NewValidator()
	d := model.RepositoryDescriptor{ID: "1", Name: "demo", Kind: model.KindFilesystem, Origin: "/tmp/demo"}
	d.Schedule.CronExpression = "not a cron"
	if err := v.ValidateDescriptor(&d); err == nil {
		t.Fatal("expected an error for a malformed cron expression")
	}
}

func TestValidateDescriptorAcceptsFiveAndSixFieldCron(t *testing.T) {
	v := NewValidator()
	for _, expr := range []string{"0 0 * * *", "0 0 0 * * *"} {
		d := model.RepositoryDescriptor{ID: "1", Name: "demo", Kind: model.KindFilesystem, Origin: "/tmp/demo"}
		d.Schedule.CronExpression = expr
		if err := v.ValidateDescriptor(&d); err != nil {
			t.Fatalf("cron %q: unexpected error: %v", expr, err)
		}
	}
}
