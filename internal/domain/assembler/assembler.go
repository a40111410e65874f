// Package assembler joins computed complexity rows onto descriptive metadata.
//
// Joins are left joins: every complexity row is returned, and fields without
// a metadata match stay nil.
package assembler

import (
	"strings"

	"github.com/okian/jci/internal/domain/model"
)

// regionKey matches region names regardless of case and surrounding space.
type regionKey struct {
	kind model.RegionType
	name string
}

type jobKey struct {
	region regionKey
	jobID  string
}

func keyOf(r model.Region, jobID string) jobKey {
	return jobKey{
		region: regionKey{kind: r.Type, name: strings.ToLower(strings.TrimSpace(r.Name))},
		jobID:  jobID,
	}
}

// Assembler holds the metadata indexes. It is safe for concurrent reads once built.
type Assembler struct {
	employment map[jobKey]int64
	regional   map[jobKey]model.JobMeta
	global     map[string]model.JobMeta
	tasks      map[string]model.TaskMeta
}

// New indexes the job records (for employment) and the metadata tables. When
// a key occurs more than once the first row wins. Region names are compared
// case-insensitively.
func New(jobs []model.JobRecord, jobMeta []model.JobMeta, taskMeta []model.TaskMeta) *Assembler {
	a := &Assembler{
		employment: make(map[jobKey]int64, len(jobs)),
		regional:   make(map[jobKey]model.JobMeta),
		global:     make(map[string]model.JobMeta, len(jobMeta)),
		tasks:      make(map[string]model.TaskMeta, len(taskMeta)),
	}
	for _, j := range jobs {
		k := keyOf(j.Region, j.JobID)
		if _, ok := a.employment[k]; !ok {
			a.employment[k] = j.Employment
		}
	}
	for _, m := range jobMeta {
		if m.Region == (model.Region{}) {
			if _, ok := a.global[m.JobID]; !ok {
				a.global[m.JobID] = m
			}
			continue
		}
		k := keyOf(m.Region, m.JobID)
		if _, ok := a.regional[k]; !ok {
			a.regional[k] = m
		}
	}
	for _, m := range taskMeta {
		if _, ok := a.tasks[m.TaskID]; !ok {
			a.tasks[m.TaskID] = m
		}
	}
	return a
}

// Jobs joins job rows onto employment and job metadata. Region-scoped
// metadata takes precedence over region-independent metadata.
func (a *Assembler) Jobs(rows []model.JobComplexity) []model.JobRow {
	out := make([]model.JobRow, len(rows))
	for i, r := range rows {
		out[i] = model.JobRow{JobComplexity: r}
		k := keyOf(r.Region, r.JobID)
		if emp, ok := a.employment[k]; ok && emp != model.UnknownEmployment {
			out[i].Employment = &emp
		}
		m, ok := a.regional[k]
		if !ok {
			m, ok = a.global[r.JobID]
		}
		if ok {
			out[i].Title = nonEmpty(m.Title)
			out[i].GroupName = nonEmpty(m.GroupName)
		}
	}
	return out
}

// Tasks joins task rows onto task metadata by task id.
func (a *Assembler) Tasks(rows []model.TaskComplexity) []model.TaskRow {
	out := make([]model.TaskRow, len(rows))
	for i, r := range rows {
		out[i] = model.TaskRow{TaskComplexity: r}
		if m, ok := a.tasks[r.TaskID]; ok {
			out[i].Title = nonEmpty(m.Title)
			out[i].GroupID = nonEmpty(m.GroupID)
			out[i].GroupName = nonEmpty(m.GroupName)
		}
	}
	return out
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
