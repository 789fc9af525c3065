package workflow

import (
	"os"

	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Template is a ready-made workflow description offered to the user
type Template struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon,omitempty"`
}

// DefaultTemplates are used when no template file is configured
var DefaultTemplates = []Template{
	{
		Title:       "Code Review Automation",
		Description: "Automatically review code changes and provide feedback",
		Icon:        "🔍",
	},
	{
		Title:       "Documentation Generator",
		Description: "Generate comprehensive documentation from code",
		Icon:        "📚",
	},
	{
		Title:       "Test Case Creation",
		Description: "Create unit tests for existing functions",
		Icon:        "🧪",
	},
	{
		Title:       "API Integration Setup",
		Description: "Set up boilerplate code for API integrations",
		Icon:        "🔗",
	},
}

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadTemplates reads templates from a YAML file of the form
//
//	templates:
//	  - title: Code Review Automation
//	    description: Automatically review code changes and provide feedback
//
// An empty path returns DefaultTemplates.
func LoadTemplates(path string) ([]Template, error) {
	if path == "" {
		return DefaultTemplates, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read template file", goerr.V("path", path))
	}

	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, goerr.Wrap(err, "failed to parse template file", goerr.V("path", path))
	}

	for i, t := range f.Templates {
		if t.Title == "" || t.Description == "" {
			return nil, model.InputError("template requires title and description",
				goerr.V("path", path), goerr.V("index", i))
		}
	}

	return f.Templates, nil
}
