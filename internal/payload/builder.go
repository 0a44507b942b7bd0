// Package payload builds the request bodies sent by workers.
//
// Two template documents are assembled once from the run configuration.
// Every derived payload is a deep copy of its template with the
// per-iteration fields overlaid, so templates are never mutated and
// callers may freely modify what they receive.
package payload

import (
	_ "embed"
	"strings"

	"github.com/pingcap/errors"
	"github.com/tiendc/go-deepcopy"

	"github.com/wesleyorama2/volley/pkg/jsonschema"
)

// Document is a decoded JSON object.
type Document = map[string]interface{}

var (
	//go:embed schemas/create.json
	createSchemaSource string
	//go:embed schemas/announce.json
	announceSchemaSource string

	createSchema   = jsonschema.MustCompile("create.json", createSchemaSource)
	announceSchema = jsonschema.MustCompile("announce.json", announceSchemaSource)
)

var (
	subjectPath = []string{"members", "me", "constants", "system", "subject"}
	refNamePath = []string{"sessionRef", "name"}
)

// Template defaults used when Options leaves them empty.
const (
	DefaultSearchVisibility = "public"
	DefaultRoleType         = "lfg"
)

// Options are the run-wide values baked into the templates.
type Options struct {
	Description     string
	Locale          string
	SubjectID       string
	Tags            []string
	ConfirmedTarget int

	// SearchVisibility is written to properties.system.searchHandleVisibility.
	SearchVisibility string
	// RoleType names the roleTypes entry holding the confirmed target.
	RoleType string

	// DeleteServiceID is the service the announce reference points at.
	DeleteServiceID string
	TemplateName    string
}

// Builder derives create and announce payloads from fixed templates.
type Builder struct {
	subject  string
	create   Document
	announce Document
}

// NewBuilder assembles both templates and validates them against their
// schemas.
func NewBuilder(opts Options) (*Builder, error) {
	tags := make([]interface{}, 0, len(opts.Tags))
	for _, t := range opts.Tags {
		tags = append(tags, t)
	}

	if opts.SearchVisibility == "" {
		opts.SearchVisibility = DefaultSearchVisibility
	}
	if opts.RoleType == "" {
		opts.RoleType = DefaultRoleType
	}

	b := &Builder{
		subject: opts.SubjectID,
		create: Document{
			"properties": Document{
				"system": Document{
					"joinRestriction":        "followed",
					"readRestriction":        "followed",
					"searchHandleVisibility": opts.SearchVisibility,
					"description": Document{
						"locale": opts.Locale,
						"text":   opts.Description,
					},
				},
			},
			"members": Document{
				"me": Document{
					"constants": Document{
						"system": Document{
							"initialize": true,
							"subject":    opts.SubjectID,
						},
					},
				},
			},
			"roleTypes": Document{
				opts.RoleType: Document{
					"roles": Document{
						"confirmed": Document{
							"target": opts.ConfirmedTarget,
						},
					},
				},
			},
		},
		announce: Document{
			"type": "search",
			"sessionRef": Document{
				"scid":         opts.DeleteServiceID,
				"templateName": opts.TemplateName,
				"name":         "",
			},
			"searchAttributes": Document{
				"tags":           tags,
				"achievementIds": []interface{}{},
				"locale":         language(opts.Locale),
			},
		},
	}

	if errs := createSchema.ValidateDocument(b.create); errs != nil {
		return nil, errors.Annotate(errs, "invalid create template")
	}
	if errs := announceSchema.ValidateDocument(b.announce); errs != nil {
		return nil, errors.Annotate(errs, "invalid announce template")
	}
	return b, nil
}

// CreatePayload returns a fresh create body for id.
func (b *Builder) CreatePayload(id string) (Document, error) {
	doc, err := clone(b.create)
	if err != nil {
		return nil, err
	}
	if err := setPath(doc, subjectPath, b.subject); err != nil {
		return nil, err
	}
	return doc, nil
}

// AnnouncePayload returns a fresh announce body referencing id.
func (b *Builder) AnnouncePayload(id string) (Document, error) {
	if id == "" {
		return nil, errors.New("announce payload requires an identifier")
	}
	doc, err := clone(b.announce)
	if err != nil {
		return nil, err
	}
	if err := setPath(doc, refNamePath, id); err != nil {
		return nil, err
	}
	return doc, nil
}

func clone(src Document) (Document, error) {
	var dst Document
	if err := deepcopy.Copy(&dst, src); err != nil {
		return nil, errors.Annotate(err, "copy template")
	}
	return dst, nil
}

// setPath writes value at path, requiring every intermediate node to exist.
func setPath(doc Document, path []string, value interface{}) error {
	node := doc
	for i, key := range path[:len(path)-1] {
		next, ok := node[key].(Document)
		if !ok {
			return errors.Errorf("template has no object at %s", strings.Join(path[:i+1], "."))
		}
		node = next
	}
	node[path[len(path)-1]] = value
	return nil
}

// language reduces "en-US" to "en".
func language(locale string) string {
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		return locale[:i]
	}
	return locale
}
