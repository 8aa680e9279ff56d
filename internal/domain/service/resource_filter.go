package service

import (
	"sort"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/domain/valueobject"
)

// defaultRejectTypes are excluded from page loads unless the caller opts in:
// they dominate capture latency and memory and rarely change layout enough to
// matter for a screenshot.
var defaultRejectTypes = []valueobject.ResourceType{
	valueobject.ResourceTypeImage,
	valueobject.ResourceTypeFont,
	valueobject.ResourceTypeMedia,
}

// ResourceFilter decides, per intercepted sub-request, whether the request is
// allowed to proceed. The decision is synchronous and final: an aborted
// sub-request is not retried for that load. A category the filter does not
// explicitly reject is allowed through.
type ResourceFilter struct {
	reject map[valueobject.ResourceType]struct{}
}

// NewResourceFilter builds a filter rejecting exactly the given categories.
// An empty list yields a filter that allows everything.
func NewResourceFilter(reject []valueobject.ResourceType) *ResourceFilter {
	set := make(map[valueobject.ResourceType]struct{}, len(reject))
	for _, rt := range reject {
		if rt == "" {
			continue
		}
		set[rt] = struct{}{}
	}
	return &ResourceFilter{reject: set}
}

// DefaultResourceFilter returns the filter applied when the caller supplies
// no exclusion list: images, fonts and media are rejected.
func DefaultResourceFilter() *ResourceFilter {
	return NewResourceFilter(defaultRejectTypes)
}

// AllowAllFilter returns a filter that never aborts a sub-request, used when
// the caller explicitly opts to include resources.
func AllowAllFilter() *ResourceFilter {
	return NewResourceFilter(nil)
}

// Allow reports whether a sub-request of the given category may proceed.
func (f *ResourceFilter) Allow(rt valueobject.ResourceType) bool {
	_, rejected := f.reject[rt]
	return !rejected
}

// RejectedTypes returns the reject set in stable order, for logging.
func (f *ResourceFilter) RejectedTypes() []valueobject.ResourceType {
	types := make([]valueobject.ResourceType, 0, len(f.reject))
	for rt := range f.reject {
		types = append(types, rt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
