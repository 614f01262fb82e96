package metadata

// Module locates a plugin inside a shared repository.
type Module struct {
	// Repository is the git URL of the shared repository.
	Repository string
	// Path is the sub-directory holding the plugin.
	Path string
	// TagPrefix replaces the artifact id when deriving a release tag.
	TagPrefix string
}

const githubOrg = "https://github.com/jenkinsci/"

// DefaultRemap covers multi-module repositories whose released plugins do not
// carry the Plugin-Module attribute.
var DefaultRemap = map[string]Module{
	"configuration-as-code": {Repository: githubOrg + "configuration-as-code-plugin.git", Path: "plugin", TagPrefix: "configuration-as-code"},

	"declarative-pipeline-migration-assistant":     {Repository: githubOrg + "declarative-pipeline-migration-assistant-plugin.git", Path: "plugin", TagPrefix: "declarative-pipeline-migration-assistant-parent"},
	"declarative-pipeline-migration-assistant-api": {Repository: githubOrg + "declarative-pipeline-migration-assistant-plugin.git", Path: "api", TagPrefix: "declarative-pipeline-migration-assistant-parent"},

	"pipeline-model-api":           {Repository: githubOrg + "pipeline-model-definition-plugin.git", Path: "pipeline-model-api", TagPrefix: "pipeline-model-definition-parent"},
	"pipeline-model-definition":    {Repository: githubOrg + "pipeline-model-definition-plugin.git", Path: "pipeline-model-definition", TagPrefix: "pipeline-model-definition-parent"},
	"pipeline-model-extensions":    {Repository: githubOrg + "pipeline-model-definition-plugin.git", Path: "pipeline-model-extensions", TagPrefix: "pipeline-model-definition-parent"},
	"pipeline-stage-tags-metadata": {Repository: githubOrg + "pipeline-model-definition-plugin.git", Path: "pipeline-stage-tags-metadata", TagPrefix: "pipeline-model-definition-parent"},

	"pipeline-rest-api":   {Repository: githubOrg + "pipeline-stage-view-plugin.git", Path: "rest-api", TagPrefix: "pipeline-stage-view-parent"},
	"pipeline-stage-view": {Repository: githubOrg + "pipeline-stage-view-plugin.git", Path: "ui", TagPrefix: "pipeline-stage-view-parent"},

	"swarm":       {Repository: githubOrg + "swarm-plugin.git", Path: "plugin", TagPrefix: "swarm-plugin"},
	"warnings-ng": {Repository: githubOrg + "warnings-ng-plugin.git", Path: "plugin", TagPrefix: "warnings-ng-parent"},
}
