package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/jci/internal/domain/model"
)

// Query parameters.
const (
	paramRegionType = "region_type"
	paramRegion     = "region"
	paramLimit      = "limit"
	paramOffset     = "offset"
	paramJobID      = "job_id"
	paramTaskID     = "task_id"
)

// RegionResolver supplies the region used when a request names none.
type RegionResolver interface {
	NationalRegion() model.Region
}

// regionParam reads region_type and region. Without either it returns the
// national region; state and metro types need a region name.
func regionParam(q url.Values, national model.Region) (model.Region, error) {
	rawType := strings.TrimSpace(q.Get(paramRegionType))
	name := strings.TrimSpace(q.Get(paramRegion))
	if rawType == "" {
		if name != "" {
			return model.Region{}, fmt.Errorf("%w: %s requires %s", ErrBadRequest, paramRegion, paramRegionType)
		}
		return national, nil
	}
	rt, err := model.ParseRegionType(rawType)
	if err != nil {
		return model.Region{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if name == "" {
		if rt == model.National {
			return national, nil
		}
		return model.Region{}, fmt.Errorf("%w: %s is required for %s regions", ErrBadRequest, paramRegion, rt)
	}
	return model.Region{Type: rt, Name: name}, nil
}

// intParam parses a non-negative integer parameter. Missing means def.
func intParam(q url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadRequest, key)
	}
	return n, nil
}
