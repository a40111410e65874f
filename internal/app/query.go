package service

import (
	"context"
	"fmt"

	repository "github.com/okian/jci/internal/adapters/repository"
	"github.com/okian/jci/internal/domain/model"
	"github.com/okian/jci/internal/domain/types"
)

// ErrNoStore is returned by reads when the service has no result store. It
// matches repository.ErrNoRun.
var ErrNoStore = fmt.Errorf("no result store configured: %w", repository.ErrNoRun)

// NationalRegion returns the region national rows are stored under.
func (s *Service) NationalRegion() model.Region {
	name := s.selection.NationalName
	if name == "" {
		name = DefaultSelection().NationalName
	}
	return model.Region{Type: model.National, Name: name}
}

func (s *Service) requireStore() (repository.Store, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store, nil
}

// TopN returns the n most complex jobs of a region.
func (s *Service) TopN(ctx context.Context, region model.Region, n int) ([]types.Entry, error) {
	store, err := s.requireStore()
	if err != nil {
		return nil, err
	}
	entries, err := store.TopJobs(ctx, region, n)
	if err != nil {
		return nil, err
	}

	apiEntries := make([]types.Entry, len(entries))
	for i, entry := range entries {
		apiEntries[i] = toEntry(entry)
	}
	return apiEntries, nil
}

// Rank returns the rank and index of a job within a region.
func (s *Service) Rank(ctx context.Context, region model.Region, jobID string) (types.Entry, error) {
	store, err := s.requireStore()
	if err != nil {
		return types.Entry{}, err
	}
	entry, err := store.Rank(ctx, region, jobID)
	if err != nil {
		return types.Entry{}, err
	}
	return toEntry(entry), nil
}

func toEntry(e repository.Entry) types.Entry { //nolint:gocritic // hugeParam: converted by value
	return types.Entry{
		Rank:       e.Rank,
		JobID:      e.Job.JobID,
		Title:      e.Job.Title,
		JCI:        e.Job.JCI,
		Wage:       e.Job.Wage,
		RegionType: string(e.Job.Region.Type),
		RegionName: e.Job.Region.Name,
	}
}

// Jobs lists job rows of the latest run.
func (s *Service) Jobs(ctx context.Context, f repository.Filter) ([]types.Job, error) {
	store, err := s.requireStore()
	if err != nil {
		return nil, err
	}
	rows, err := store.Jobs(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]types.Job, len(rows))
	for i, r := range rows {
		out[i] = types.Job{
			JobID:      r.JobID,
			JCI:        r.JCI,
			Wage:       r.Wage,
			RegionType: string(r.Region.Type),
			RegionName: r.Region.Name,
			Title:      r.Title,
			Employment: r.Employment,
			GroupName:  r.GroupName,
		}
	}
	return out, nil
}

// Tasks lists task rows of the latest run.
func (s *Service) Tasks(ctx context.Context, f repository.Filter) ([]types.Task, error) {
	store, err := s.requireStore()
	if err != nil {
		return nil, err
	}
	rows, err := store.Tasks(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]types.Task, len(rows))
	for i, r := range rows {
		out[i] = types.Task{
			TaskID:     r.TaskID,
			TCI:        r.TCI,
			AvgWage:    r.AvgWage,
			RegionType: string(r.Region.Type),
			RegionName: r.Region.Name,
			Title:      r.Title,
			GroupID:    r.GroupID,
			GroupName:  r.GroupName,
		}
	}
	return out, nil
}

// Regions returns the region catalog of the latest run.
func (s *Service) Regions(ctx context.Context) (types.Catalog, error) {
	store, err := s.requireStore()
	if err != nil {
		return types.Catalog{}, err
	}
	counts, err := store.Regions(ctx)
	if err != nil {
		return types.Catalog{}, err
	}

	cat := types.Catalog{RegionTypes: []string{}, Regions: map[string][]types.Region{}}
	for _, rt := range []model.RegionType{model.National, model.State, model.Metro} {
		for _, c := range counts {
			if c.Region.Type != rt {
				continue
			}
			key := string(rt)
			if _, ok := cat.Regions[key]; !ok {
				cat.RegionTypes = append(cat.RegionTypes, key)
			}
			cat.Regions[key] = append(cat.Regions[key], types.Region{Name: c.Region.Name, Jobs: c.Jobs, Tasks: c.Tasks})
		}
	}
	return cat, nil
}

// GetStats summarizes the latest run.
func (s *Service) GetStats(ctx context.Context) (types.Stats, error) {
	store, err := s.requireStore()
	if err != nil {
		return types.Stats{}, err
	}
	run, err := store.LatestRun(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	return types.Stats{
		RunID:      run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Rounds:     run.Rounds,
		Regions:    run.Regions,
		Failures:   run.Failures,
		JobRows:    run.JobRows,
		TaskRows:   run.TaskRows,
	}, nil
}
