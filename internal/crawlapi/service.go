// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package crawlapi defines the Go-level contract an HTTP surface
// would call: Create/List/Get/Update/Delete over repository
// descriptors, Crawl/CancelCrawl, SetSchedule, Progress/
// ActiveProgress, Discover, and ResetIndex. It is a thin façade over
// the orchestrator, state store, writer and scheduler, the seam a
// future HTTP layer adapts rather than reimplements.
package crawlapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gizzahub/gzh-crawl-core/internal/cancel"
	"github.com/gizzahub/gzh-crawl-core/internal/crawler"
	"github.com/gizzahub/gzh-crawl-core/internal/errors"
	"github.com/gizzahub/gzh-crawl-core/internal/model"
	"github.com/gizzahub/gzh-crawl-core/internal/progress"
	"github.com/gizzahub/gzh-crawl-core/internal/reposave"
	"github.com/gizzahub/gzh-crawl-core/internal/scheduler"
	"github.com/gizzahub/gzh-crawl-core/internal/searchindex"
	"github.com/gizzahub/gzh-crawl-core/pkg/provider"
)

// Service is the wiring point every command and (eventually) HTTP
// handler calls into. It owns no state of its own beyond its
// collaborators.
type Service struct {
	Store     *reposave.Store
	Validator *reposave.Validator
	Writer    searchindex.Writer
	Tracker   *progress.Tracker
	Cancels   *cancel.Registry
	Crawler   *crawler.Crawler
	Scheduler *scheduler.Scheduler
}

// New wires a Service from already-constructed collaborators.
func New(store *reposave.Store, writer searchindex.Writer, tracker *progress.Tracker, cancels *cancel.Registry, crwl *crawler.Crawler, sched *scheduler.Scheduler) *Service {
	return &Service{
		Store:     store,
		Validator: reposave.NewValidator(),
		Writer:    writer,
		Tracker:   tracker,
		Cancels:   cancels,
		Crawler:   crwl,
		Scheduler: sched,
	}
}

// Create validates and persists a new descriptor (POST /repositories).
// An empty ID is assigned a fresh UUID, mirroring the HTTP handler's
// contract of returning a generated identity to the caller.
func (s *Service) Create(d model.RepositoryDescriptor) (model.RepositoryDescriptor, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.State == "" {
		d.State = model.CrawlStateIdle
	}
	for _, existing := range s.Store.List() {
		if existing.Name == d.Name {
			return model.RepositoryDescriptor{}, errors.WrapWithMessage(errors.ErrBadRequest, "repository name already exists: "+d.Name)
		}
	}
	if err := s.Validator.ValidateDescriptor(&d); err != nil {
		return model.RepositoryDescriptor{}, errors.Wrap(err, errors.ErrBadRequest)
	}
	if d.Kind == model.KindGitMulti && d.Credential == "" {
		return model.RepositoryDescriptor{}, errors.WrapWithMessage(errors.ErrBadRequest, "GIT_MULTI descriptor requires a credential")
	}
	if err := s.Store.Create(d); err != nil {
		return model.RepositoryDescriptor{}, err
	}
	return d, nil
}

// List returns every descriptor (GET /repositories).
func (s *Service) List() []model.RepositoryDescriptor {
	return s.Store.List()
}

// Get fetches one descriptor (GET /repositories/{id}).
func (s *Service) Get(id string) (model.RepositoryDescriptor, error) {
	d, ok := s.Store.Get(id)
	if !ok {
		return model.RepositoryDescriptor{}, errors.ErrNotFound
	}
	return d, nil
}

// Update replaces a descriptor, preserving the credential field when
// patch.Credential is empty so an update payload that omits the
// secret does not blank it out (PUT /repositories/{id}).
func (s *Service) Update(id string, patch model.RepositoryDescriptor) (model.RepositoryDescriptor, error) {
	existing, ok := s.Store.Get(id)
	if !ok {
		return model.RepositoryDescriptor{}, errors.ErrNotFound
	}
	patch.ID = id
	if patch.Credential == "" {
		patch.Credential = existing.Credential
	}
	if patch.State == "" {
		patch.State = existing.State
	}
	if err := s.Validator.ValidateDescriptor(&patch); err != nil {
		return model.RepositoryDescriptor{}, errors.Wrap(err, errors.ErrBadRequest)
	}
	if err := s.Store.Update(patch); err != nil {
		return model.RepositoryDescriptor{}, err
	}
	if patch.Name != existing.Name {
		// Relabel already-indexed documents so the repository facet
		// follows the rename instead of waiting for the next crawl.
		if _, err := s.Writer.RenameRepository(existing.Name, patch.Name); err != nil {
			return model.RepositoryDescriptor{}, err
		}
	}
	return patch, nil
}

// Delete removes a descriptor and purges its indexed documents
// (DELETE /repositories/{id}).
func (s *Service) Delete(id string) error {
	d, ok := s.Store.Get(id)
	if !ok {
		return errors.ErrNotFound
	}
	s.Scheduler.Unschedule(id)
	s.Cancels.Deregister(id)
	if _, err := s.Writer.DeleteByRepositoryName(d.Name); err != nil {
		return err
	}
	return s.Store.Delete(id)
}

// Crawl fires a crawl for id, returning ErrConflict if one is already
// registered and ErrBadRequest if the descriptor is disabled
// (POST /repositories/{id}/crawl). It returns as soon as the crawl has
// been accepted; the crawl itself runs to completion in the
// background.
func (s *Service) Crawl(ctx context.Context, id string) error {
	descriptor, token, err := s.Crawler.Begin(id)
	if err != nil {
		return err
	}
	go func() {
		_ = s.Crawler.Run(context.Background(), descriptor, token, "")
	}()
	return nil
}

// CancelCrawl cancels an active crawl (DELETE /repositories/{id}/crawl).
// It returns ErrNotFound if no crawl for id is registered.
func (s *Service) CancelCrawl(id string) error {
	if !s.Crawler.CancelCrawl(id) {
		return errors.ErrNotFound
	}
	return nil
}

// SetSchedule replaces a descriptor's schedule sub-record and
// re-registers (or unregisters) its scheduler worker
// (PUT /repositories/{id}/schedule).
func (s *Service) SetSchedule(id string, sched model.ScheduleSubRecord) (model.RepositoryDescriptor, error) {
	d, ok := s.Store.Get(id)
	if !ok {
		return model.RepositoryDescriptor{}, errors.ErrNotFound
	}
	d.Schedule = sched
	if err := s.Store.Update(d); err != nil {
		return model.RepositoryDescriptor{}, err
	}

	if !sched.AutoEnabled {
		s.Scheduler.Unschedule(id)
		return d, nil
	}
	if err := s.Scheduler.Schedule(d); err != nil {
		return model.RepositoryDescriptor{}, errors.Wrap(err, errors.ErrBadRequest)
	}
	return d, nil
}

// Progress returns the current snapshot for id, or false if none
// exists (GET /repositories/{id}/progress).
func (s *Service) Progress(id string) (model.ProgressSnapshot, bool) {
	return s.Tracker.Get(id)
}

// ActiveProgress returns every in-flight snapshot
// (GET /repositories/progress/active).
func (s *Service) ActiveProgress() []model.ProgressSnapshot {
	return s.Tracker.Active()
}

// Discover authenticates discoverer with token and lists the
// sub-projects under namespace (the listing half of
// POST /repositories/gitlab/discover, generalized to any provider).
// It returns ErrAuthFailure when the token is rejected. It applies no
// exclusions and creates no descriptor; the caller builds and creates
// one from the result.
func (s *Service) Discover(ctx context.Context, discoverer provider.AuthenticatedDiscoverer, namespace, token string) ([]*provider.SubProject, error) {
	if err := discoverer.SetToken(token); err != nil {
		return nil, errors.Wrap(err, errors.ErrAuthFailure)
	}
	valid, err := discoverer.ValidateToken(ctx)
	if err != nil || !valid {
		return nil, errors.ErrAuthFailure
	}
	projects, err := discoverer.ListNamespaceProjects(ctx, namespace)
	if err != nil {
		return nil, errors.WrapWithMessage(err, "list namespace projects")
	}
	return projects, nil
}

// ResetIndex empties the search index, reporting the document count
// before and after (POST /admin/search/reset-index). Spec §5 leaves
// this operation's timeout unbounded ("it owns the writer
// exclusively"), so unlike every other writer call in the core it is
// not wrapped in a context deadline.
func (s *Service) ResetIndex(ctx context.Context) (before, after int, err error) {
	before = s.Writer.DocumentCount()

	result, err := s.Writer.Search(model.SearchQuery{WithFacets: true, Limit: before})
	if err != nil {
		return before, before, err
	}
	if result.Facets != nil {
		for repoName := range result.Facets.ByRepository {
			if _, delErr := s.Writer.DeleteByRepositoryName(repoName); delErr != nil {
				return before, before, delErr
			}
		}
	}

	if err := s.Writer.Commit(ctx); err != nil {
		return before, s.Writer.DocumentCount(), errors.Wrap(err, errors.ErrFatal)
	}
	return before, s.Writer.DocumentCount(), nil
}

// schedulerCrawler adapts Service to scheduler.Crawler: the worker
// already holds a freshly reloaded descriptor, so the adapter only
// needs the ID to drive the same Begin/Run path an HTTP trigger uses.
type schedulerCrawler struct {
	svc *Service
}

// NewSchedulerCrawler returns a scheduler.Crawler backed by svc, for
// wiring into scheduler.New.
func NewSchedulerCrawler(svc *Service) scheduler.Crawler {
	return &schedulerCrawler{svc: svc}
}

func (a *schedulerCrawler) Crawl(ctx context.Context, descriptor model.RepositoryDescriptor) error {
	descr, token, err := a.svc.Crawler.Begin(descriptor.ID)
	if err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return nil
		}
		return err
	}
	return a.svc.Crawler.Run(ctx, descr, token, "")
}

// DiscovererFor resolves a provider.AuthenticatedDiscoverer by name
// ("github", "gitlab") out of a fixed set wired at startup. It mirrors
// Crawler.discovererFor's substring match against the descriptor's
// origin.
func DiscovererFor(discoverers []provider.AuthenticatedDiscoverer, origin string) (provider.AuthenticatedDiscoverer, error) {
	lower := strings.ToLower(origin)
	for _, disc := range discoverers {
		if strings.Contains(lower, disc.Name()) {
			return disc, nil
		}
	}
	if len(discoverers) == 1 {
		return discoverers[0], nil
	}
	return nil, fmt.Errorf("no discovery collaborator for origin %q", origin)
}
