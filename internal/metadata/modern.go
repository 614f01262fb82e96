package metadata

// ModernExtractor reads the provenance attributes the build tool writes into
// the manifest of single-module plugins.
type ModernExtractor struct{}

func (ModernExtractor) Name() string  { return "modern" }
func (ModernExtractor) Priority() int { return 100 }

func (ModernExtractor) IsApplicable(d *Descriptor) bool {
	return d.Attr(AttrScmConnection) != ""
}

func (ModernExtractor) Extract(d *Descriptor) (*PluginMetadata, error) {
	return extractModern(d)
}

// ModernMultiModuleExtractor handles plugins that declare the repository
// sub-directory they are built from.
type ModernMultiModuleExtractor struct{}

func (ModernMultiModuleExtractor) Name() string  { return "modern-multi-module" }
func (ModernMultiModuleExtractor) Priority() int { return 200 }

func (ModernMultiModuleExtractor) IsApplicable(d *Descriptor) bool {
	return d.Attr(AttrModule) != "" && d.Attr(AttrScmConnection) != ""
}

func (ModernMultiModuleExtractor) Extract(d *Descriptor) (*PluginMetadata, error) {
	md, err := extractModern(d)
	if err != nil {
		return nil, err
	}
	md.ModulePath = d.Attr(AttrModule)
	return md, nil
}

func extractModern(d *Descriptor) (*PluginMetadata, error) {
	url, err := NormalizeSCM(d.Attr(AttrScmConnection))
	if err != nil {
		return nil, err
	}

	// a commit hash pins the sources more precisely than a tag
	ref := d.Attr(AttrGitHash)
	if ref == "" {
		ref = d.Attr(AttrScmTag)
	}

	return &PluginMetadata{
		PluginID:     d.Attr(AttrShortName),
		Version:      d.Attr(AttrPluginVersion),
		SourceURL:    url,
		GitReference: ref,
		DisplayName:  d.Attr(AttrLongName),
		GroupID:      d.Attr(AttrGroupID),
	}, nil
}
