package crawler

import (
	"net/url"
	"strings"
)

// DefaultResourceExtensions lists path suffixes of non-HTML content that is
// graphed but never fetched
var DefaultResourceExtensions = []string{
	// documents
	".pdf", ".docx", ".xlsx", ".pptx",
	// archives
	".zip", ".tar.gz", ".rar", ".apk",
	// images
	".jpg", ".jpeg", ".png", ".gif",
	// audio and video
	".mp4", ".mp3", ".avi", ".mov", ".mkv", ".webm", ".flv", ".wmv",
	// plain data
	".txt", ".csv", ".json", ".xml",
}

// Rules holds the link policy knobs of a crawl
type Rules struct {
	// ResourceExtensions are path suffixes treated as resource files
	ResourceExtensions []string
	// SkipDirectParent drops links pointing to the containing directory of the page
	SkipDirectParent bool
	// FoldSegments are final path segments folded into their parent path (e.g. "main")
	FoldSegments []string
	// HTTPOnly ignores links whose scheme is not http or https
	HTTPOnly bool
}

// DefaultRules returns the rules used when none are configured
func DefaultRules() Rules {
	return Rules{
		ResourceExtensions: DefaultResourceExtensions,
		SkipDirectParent:   true,
	}
}

// Classifier applies the configurable parts of the link policy
type Classifier struct {
	extensions []string
	fold       map[string]bool
}

// NewClassifier builds a classifier from the given rules
func NewClassifier(rules Rules) *Classifier {
	c := &Classifier{
		fold: make(map[string]bool),
	}
	for _, ext := range rules.ResourceExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.extensions = append(c.extensions, ext)
	}
	for _, segment := range rules.FoldSegments {
		if segment = strings.Trim(segment, "/ "); segment != "" {
			c.fold[segment] = true
		}
	}
	return c
}

// IsResourceFile checks if the URL path ends with a known non-HTML extension
func (c *Classifier) IsResourceFile(rawURL string) bool {
	path := strings.ToLower(urlPath(rawURL))
	for _, ext := range c.extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Fold drops the final path segment when it is one of the fold segments
func (c *Classifier) Fold(key string) string {
	i := strings.LastIndex(key, "/")
	if i < 0 || !c.fold[key[i+1:]] {
		return key
	}
	return key[:i]
}

// IsInternal checks if a URL is relative or its host matches rootDomain exactly
func IsInternal(rawURL, rootDomain string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Host == "" || parsed.Host == rootDomain
}

// IsDirectParent checks if candidate's path is the directory containing child's path.
// Example: /a/b is the direct parent of /a/b/c; /a is the direct parent of /a/b
func IsDirectParent(child, candidate string) bool {
	childPath := strings.TrimRight(urlPath(child), "/")
	candidatePath := strings.TrimRight(urlPath(candidate), "/")

	i := strings.LastIndex(childPath, "/")
	if i < 0 {
		return false
	}
	return childPath[:i] == candidatePath
}

// isHTTP checks if an absolute URL uses a scheme the fetcher can crawl
func isHTTP(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return scheme == "http" || scheme == "https"
}

// urlPath extracts the path component, falling back to the raw string.
// Opaque URLs such as mailto: yield their opaque part.
func urlPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if parsed.Opaque != "" {
		return parsed.Opaque
	}
	return parsed.Path
}
