package config

import "strings"

// normalize expands path fields and canonicalizes list entries so the rest
// of the codebase can rely on absolute paths and lowercase, dot-prefixed
// extensions.
func (c *Config) normalize() error {
	for _, field := range []*string{
		&c.Paths.InputDir,
		&c.Paths.OutputDir,
		&c.Paths.ConfDir,
		&c.Paths.LogDir,
	} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	roots := make([]string, 0, len(c.Watch.ResolutionRoots))
	for _, root := range c.Watch.ResolutionRoots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		roots = append(roots, root)
	}
	c.Watch.ResolutionRoots = roots

	exts := make([]string, 0, len(c.Watch.VideoExtensions))
	for _, ext := range c.Watch.VideoExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	c.Watch.VideoExtensions = exts

	c.Encoder.Profile = strings.ToLower(strings.TrimSpace(c.Encoder.Profile))
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)

	return nil
}
