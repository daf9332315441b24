package services

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/notifications.yaml
var notificationTemplatesYAML []byte

// MessageTemplate is one notification rendered per channel.
type MessageTemplate struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
	SMS     string `yaml:"sms"`
}

// RenderedMessage is a template executed against event data.
type RenderedMessage struct {
	Subject string
	Body    string
	SMS     string
}

type TemplateSet struct {
	templates map[string]*template.Template
}

// LoadTemplates parses the embedded catalog.
func LoadTemplates() (*TemplateSet, error) {
	return ParseTemplates(notificationTemplatesYAML)
}

func ParseTemplates(raw []byte) (*TemplateSet, error) {
	var catalog map[string]MessageTemplate
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	set := &TemplateSet{templates: make(map[string]*template.Template, len(catalog))}
	for name, mt := range catalog {
		t := template.New(name)
		for part, text := range map[string]string{"subject": mt.Subject, "body": mt.Body, "sms": mt.SMS} {
			if _, err := t.New(part).Parse(text); err != nil {
				return nil, fmt.Errorf("template %s.%s: %w", name, part, err)
			}
		}
		set.templates[name] = t
	}
	return set, nil
}

func (s *TemplateSet) Render(name string, data map[string]any) (RenderedMessage, error) {
	t, ok := s.templates[name]
	if !ok {
		return RenderedMessage{}, fmt.Errorf("unknown template %q", name)
	}

	exec := func(part string) (string, error) {
		var buf bytes.Buffer
		if err := t.ExecuteTemplate(&buf, part, data); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	var msg RenderedMessage
	var err error
	if msg.Subject, err = exec("subject"); err != nil {
		return msg, err
	}
	if msg.Body, err = exec("body"); err != nil {
		return msg, err
	}
	if msg.SMS, err = exec("sms"); err != nil {
		return msg, err
	}
	return msg, nil
}
