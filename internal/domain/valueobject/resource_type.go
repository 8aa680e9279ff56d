package valueobject

import "strings"

// ResourceType is the coarse category a browser assigns to a sub-resource
// requested during page load (document, image, font, ...). Values follow the
// categories reported by the browser's network interception layer.
type ResourceType string

const (
	ResourceTypeDocument   ResourceType = "document"
	ResourceTypeStylesheet ResourceType = "stylesheet"
	ResourceTypeImage      ResourceType = "image"
	ResourceTypeMedia      ResourceType = "media"
	ResourceTypeFont       ResourceType = "font"
	ResourceTypeScript     ResourceType = "script"
	ResourceTypeXHR        ResourceType = "xhr"
	ResourceTypeFetch      ResourceType = "fetch"
	ResourceTypeWebSocket  ResourceType = "websocket"
	ResourceTypeManifest   ResourceType = "manifest"
	ResourceTypeOther      ResourceType = "other"
)

// NormalizeResourceType lowercases and trims a caller-supplied category so
// reject lists match the categories observed during interception.
func NormalizeResourceType(raw string) ResourceType {
	return ResourceType(strings.ToLower(strings.TrimSpace(raw)))
}
