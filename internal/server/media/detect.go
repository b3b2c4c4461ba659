package media

import (
	"mime"
	"net/http"
	"path"
	"strings"
)

// detect derives the resource type, format and content type of an upload
// from its leading bytes and filename.
func detect(body []byte, filename string) (resourceType, format, contentType string) {
	contentType = http.DetectContentType(body)
	if ext := strings.ToLower(path.Ext(filename)); ext != "" {
		// Text sniffing is ambiguous, prefer the declared extension.
		if byExt := mime.TypeByExtension(ext); byExt != "" && strings.HasPrefix(contentType, "text/plain") {
			contentType = byExt
		}
	}

	base, _, _ := mime.ParseMediaType(contentType)
	switch {
	case strings.HasPrefix(base, "image/"):
		resourceType = ResourceImage
	case strings.HasPrefix(base, "video/"), strings.HasPrefix(base, "audio/"):
		resourceType = ResourceVideo
	default:
		resourceType = ResourceRaw
	}

	format = strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if format == "" {
		if _, sub, ok := strings.Cut(base, "/"); ok && resourceType != ResourceRaw {
			format = sub
		} else {
			format = "bin"
		}
	}
	return resourceType, format, contentType
}

// stem returns filename without directory and extension.
func stem(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

func joinPath(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}
