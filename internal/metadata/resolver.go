package metadata

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
)

// Extractor derives metadata from one kind of archive descriptor.
type Extractor interface {
	Name() string
	// Priority orders extractors; higher runs first.
	Priority() int
	IsApplicable(d *Descriptor) bool
	Extract(d *Descriptor) (*PluginMetadata, error)
}

// Resolver picks the highest-priority applicable extractor for a descriptor.
type Resolver struct {
	extractors []Extractor
}

// NewResolver orders extractors by descending priority, ties by name.
func NewResolver(extractors ...Extractor) *Resolver {
	sorted := make([]Extractor, len(extractors))
	copy(sorted, extractors)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority() != sorted[j].Priority() {
			return sorted[i].Priority() > sorted[j].Priority()
		}
		return sorted[i].Name() < sorted[j].Name()
	})
	return &Resolver{extractors: sorted}
}

// DefaultResolver returns the modern and legacy extractor chain.
func DefaultResolver() *Resolver {
	return NewResolver(
		ModernMultiModuleExtractor{},
		ModernExtractor{},
		LegacyMultiModuleExtractor{Remap: DefaultRemap},
		LegacyExtractor{},
	)
}

// Extractors returns the chain in evaluation order.
func (r *Resolver) Extractors() []Extractor {
	out := make([]Extractor, len(r.extractors))
	copy(out, r.extractors)
	return out
}

// Resolve returns the result of the first applicable extractor. It fails with
// META-001 when none applies, the extractor fails, or a required field is
// missing.
func (r *Resolver) Resolve(d *Descriptor) (*PluginMetadata, error) {
	name := d.Attr(AttrShortName)
	if name == "" {
		name = d.FileName
	}

	for _, ext := range r.extractors {
		if !ext.IsApplicable(d) {
			continue
		}

		md, err := ext.Extract(d)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMetadataUnavailable,
				fmt.Sprintf("extractor %s failed for %s", ext.Name(), name), err)
		}
		md.Extractor = ext.Name()

		if err := md.Validate(); err != nil {
			return nil, errors.NewMetadataUnavailableError(name, fmt.Sprintf("%s: %v", ext.Name(), err))
		}
		return md, nil
	}

	return nil, errors.NewMetadataUnavailableError(name, "no applicable extractor")
}
