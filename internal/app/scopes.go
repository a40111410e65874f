package service

import (
	"strings"

	"github.com/okian/jci/internal/domain/model"
)

// Selection decides which regions a run computes.
type Selection struct {
	IncludeNational bool
	NationalName    string

	// States and Metros name regions explicitly, in output order. A named
	// region without job rows is reported as missing input.
	States []string
	Metros []string

	// MaxStates and MaxMetros cap discovered regions when no explicit list
	// is given. 0 means no cap.
	MaxStates int
	MaxMetros int
}

// DefaultSelection computes every region found in the job tables.
func DefaultSelection() Selection {
	return Selection{IncludeNational: true, NationalName: "United States"}
}

// BuildScopes groups job records into region scopes: the national scope
// first, then states, then metros. Without an explicit list, regions follow
// their first appearance in jobs. National records are gathered under
// sel.NationalName whatever name the table gives them.
func BuildScopes(jobs []model.JobRecord, sel Selection) []model.RegionScope {
	type group struct {
		name string
		jobs []model.JobRecord
	}
	var (
		national []model.JobRecord
		order    = map[model.RegionType][]string{}
		byKey    = map[model.RegionType]map[string]*group{model.State: {}, model.Metro: {}}
	)
	nationalName := sel.nationalName()

	for _, j := range jobs {
		if j.Region.Type == model.National {
			j.Region.Name = nationalName
			national = append(national, j)
			continue
		}
		groups, ok := byKey[j.Region.Type]
		if !ok {
			continue
		}
		key := foldName(j.Region.Name)
		g, ok := groups[key]
		if !ok {
			g = &group{name: j.Region.Name}
			groups[key] = g
			order[j.Region.Type] = append(order[j.Region.Type], key)
		}
		j.Region = model.Region{Type: j.Region.Type, Name: g.name}
		g.jobs = append(g.jobs, j)
	}

	var scopes []model.RegionScope
	if sel.IncludeNational && len(national) > 0 {
		scopes = append(scopes, model.RegionScope{
			Region: model.Region{Type: model.National, Name: nationalName},
			Jobs:   national,
		})
	}

	pick := func(rt model.RegionType, explicit []string, limit int) {
		groups := byKey[rt]
		if len(explicit) > 0 {
			seen := make(map[string]bool, len(explicit))
			for _, name := range explicit {
				key := foldName(name)
				if key == "" || seen[key] {
					continue
				}
				seen[key] = true
				if g, ok := groups[key]; ok {
					scopes = append(scopes, model.RegionScope{Region: model.Region{Type: rt, Name: g.name}, Jobs: g.jobs, Explicit: true})
					continue
				}
				scopes = append(scopes, model.RegionScope{Region: model.Region{Type: rt, Name: strings.TrimSpace(name)}, Explicit: true})
			}
			return
		}
		keys := order[rt]
		if limit > 0 && len(keys) > limit {
			keys = keys[:limit]
		}
		for _, key := range keys {
			g := groups[key]
			scopes = append(scopes, model.RegionScope{Region: model.Region{Type: rt, Name: g.name}, Jobs: g.jobs})
		}
	}
	pick(model.State, sel.States, sel.MaxStates)
	pick(model.Metro, sel.Metros, sel.MaxMetros)
	return scopes
}

func (sel Selection) nationalName() string {
	if sel.NationalName == "" {
		return DefaultSelection().NationalName
	}
	return sel.NationalName
}

// CanonicalJobMeta returns meta with national rows renamed to the national
// region name BuildScopes uses, so regional metadata joins onto national rows.
func (sel Selection) CanonicalJobMeta(meta []model.JobMeta) []model.JobMeta {
	out := make([]model.JobMeta, len(meta))
	for i, m := range meta {
		if m.Region.Type == model.National {
			m.Region.Name = sel.nationalName()
		}
		out[i] = m
	}
	return out
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
