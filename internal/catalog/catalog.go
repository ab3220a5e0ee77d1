// Package catalog holds the declarative table of entities and vendor actions
// the generic entity client is driven by.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/oapi-codegen/runtime"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/logo-objects/internal/constants"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Returns values of an action.
const (
	ReturnsParameters = "parameters"
	ReturnsRaw        = "raw"
)

// Action is a vendor sub-resource reachable under an entity path.
type Action struct {
	Name    string        `yaml:"name"`
	Methods []logo.Method `yaml:"methods"`
	Params  []string      `yaml:"params"`
	Returns string        `yaml:"returns"`
}

// Supports reports whether the action accepts method.
func (a *Action) Supports(method logo.Method) bool {
	for _, m := range a.Methods {
		if m == method {
			return true
		}
	}

	return false
}

// Info returns the public description of the action.
func (a *Action) Info() logo.ActionInfo {
	return logo.ActionInfo{
		Name:    a.Name,
		Methods: append([]logo.Method(nil), a.Methods...),
		Params:  append([]string(nil), a.Params...),
		Returns: a.Returns,
	}
}

// Entity is one REST collection.
type Entity struct {
	Name       string             `yaml:"name"`
	Path       string             `yaml:"path"`
	Search     []logo.SearchField `yaml:"search"`
	ActionSets []string           `yaml:"actionSets"`
	Actions    []Action           `yaml:"actions"`

	actions map[string]*Action
	order   []string
}

// Catalog is the loaded set of entities. It is read-only after Load.
type Catalog struct {
	entities map[string]*Entity
	order    []string
}

type document struct {
	ActionSets map[string][]Action `yaml:"actionSets"`
	Entities   []Entity            `yaml:"entities"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Load(defaultCatalog)
}

// Load parses and validates a catalog document.
func Load(data []byte) (*Catalog, error) {
	var doc document

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrCatalogInvalid, err)
	}

	catalog := &Catalog{entities: make(map[string]*Entity, len(doc.Entities))}

	for index := range doc.Entities {
		entity := &doc.Entities[index]

		err = entity.resolve(doc.ActionSets)
		if err != nil {
			return nil, err
		}

		if _, dup := catalog.entities[entity.Name]; dup {
			return nil, fmt.Errorf("%w: %w %q", constants.ErrCatalogInvalid, constants.ErrDuplicateEntity, entity.Name)
		}

		catalog.entities[entity.Name] = entity
		catalog.order = append(catalog.order, entity.Name)
	}

	if len(catalog.order) == 0 {
		return nil, fmt.Errorf("%w: no entities", constants.ErrCatalogInvalid)
	}

	return catalog, nil
}

func (e *Entity) resolve(sets map[string][]Action) error {
	if e.Name == "" {
		return fmt.Errorf("%w: entity without name", constants.ErrCatalogInvalid)
	}

	if !strings.HasPrefix(e.Path, "/") || strings.HasSuffix(e.Path, "/") || len(e.Path) < 2 {
		return fmt.Errorf("%w: entity %q has invalid path %q", constants.ErrCatalogInvalid, e.Name, e.Path)
	}

	seenKeys := make(map[string]struct{}, len(e.Search))
	for _, field := range e.Search {
		if field.Key == "" || field.Field == "" {
			return fmt.Errorf("%w: entity %q has an incomplete search field", constants.ErrCatalogInvalid, e.Name)
		}

		if _, dup := seenKeys[field.Key]; dup {
			return fmt.Errorf("%w: entity %q declares search key %q twice", constants.ErrCatalogInvalid, e.Name, field.Key)
		}

		seenKeys[field.Key] = struct{}{}
	}

	e.actions = make(map[string]*Action)

	all := make([]Action, 0, len(e.Actions))

	for _, setName := range e.ActionSets {
		set, ok := sets[setName]
		if !ok {
			return fmt.Errorf("%w: entity %q: %w %q", constants.ErrCatalogInvalid, e.Name, constants.ErrUnknownActionSet, setName)
		}

		all = append(all, set...)
	}

	all = append(all, e.Actions...)

	for index := range all {
		action := all[index]

		err := action.normalize()
		if err != nil {
			return fmt.Errorf("%w: entity %q action %q: %w", constants.ErrCatalogInvalid, e.Name, action.Name, err)
		}

		if _, dup := e.actions[action.Name]; dup {
			return fmt.Errorf("%w: entity %q: %w %q", constants.ErrCatalogInvalid, e.Name, constants.ErrDuplicateAction, action.Name)
		}

		e.actions[action.Name] = &action
		e.order = append(e.order, action.Name)
	}

	return nil
}

func (a *Action) normalize() error {
	if a.Name == "" || strings.Contains(a.Name, "/") {
		return fmt.Errorf("invalid action name %q", a.Name)
	}

	if len(a.Methods) == 0 {
		return fmt.Errorf("%w: no methods", constants.ErrUnsupportedMethod)
	}

	for index, method := range a.Methods {
		method = logo.Method(strings.ToUpper(string(method)))
		if method != logo.MethodGet && method != logo.MethodPost {
			return fmt.Errorf("%w: %s", constants.ErrUnsupportedMethod, method)
		}

		a.Methods[index] = method
	}

	switch a.Returns {
	case "":
		a.Returns = ReturnsParameters
	case ReturnsParameters, ReturnsRaw:
	default:
		return fmt.Errorf("unknown returns %q", a.Returns)
	}

	return nil
}

// Entity returns the named entity.
func (c *Catalog) Entity(name string) (*Entity, error) {
	entity, ok := c.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %w", constants.ErrUnknownEntity, logo.NewInvalidArgument("entity", "%q is not in the catalog", name))
	}

	return entity, nil
}

// Entities returns the entity names in catalog order.
func (c *Catalog) Entities() []string {
	return append([]string(nil), c.order...)
}

// SortedEntities returns the entity names in lexical order.
func (c *Catalog) SortedEntities() []string {
	names := c.Entities()
	sort.Strings(names)

	return names
}

// Lookup resolves (action, method) on the entity.
func (e *Entity) Lookup(name string, method logo.Method) (*Action, error) {
	action, ok := e.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %w", constants.ErrUnknownAction,
			logo.NewInvalidArgument("action", "%q is not defined for %s", name, e.Name))
	}

	if !action.Supports(method) {
		return nil, fmt.Errorf("%w: %w", constants.ErrUnsupportedMethod,
			logo.NewInvalidArgument("method", "%s %s does not accept %s", e.Name, name, method))
	}

	return action, nil
}

// ActionInfos describes the entity's actions in declaration order.
func (e *Entity) ActionInfos() []logo.ActionInfo {
	infos := make([]logo.ActionInfo, 0, len(e.order))
	for _, name := range e.order {
		infos = append(infos, e.actions[name].Info())
	}

	return infos
}

// ItemPath returns the path of a single record.
func (e *Entity) ItemPath(id string) (string, error) {
	segment, err := PathSegment("id", id)
	if err != nil {
		return "", err
	}

	return e.Path + "/" + segment, nil
}

// Render builds the request for invoking the action with params.
//
// GET returns the templated path and a nil body. POST returns the action path
// and the params as a JSON object. Missing and undeclared params are rejected.
func (e *Entity) Render(action *Action, method logo.Method, params logo.ActionParams) (string, map[string]interface{}, error) {
	var unknown []string

	declared := make(map[string]struct{}, len(action.Params))
	for _, name := range action.Params {
		declared[name] = struct{}{}
	}

	for name := range params {
		if _, ok := declared[name]; !ok {
			unknown = append(unknown, name)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)

		return "", nil, logo.NewInvalidArgument("params", "%s %s does not accept %s", e.Name, action.Name, strings.Join(unknown, ", "))
	}

	for _, name := range action.Params {
		if value, ok := params[name]; !ok || value == nil {
			return "", nil, logo.NewInvalidArgument(name, "required by %s %s", e.Name, action.Name)
		}
	}

	path := e.Path + "/" + action.Name

	if method == logo.MethodPost {
		body := make(map[string]interface{}, len(action.Params))
		for _, name := range action.Params {
			body[name] = params[name]
		}

		return path, body, nil
	}

	segments := []string{path}

	for _, name := range action.Params {
		segment, err := PathSegment(name, params[name])
		if err != nil {
			return "", nil, err
		}

		segments = append(segments, segment)
	}

	return strings.Join(segments, "/"), nil, nil
}

// PathSegment styles a value as a single escaped path segment.
func PathSegment(name string, value interface{}) (string, error) {
	if text, ok := value.(string); ok {
		switch {
		case strings.TrimSpace(text) == "":
			return "", logo.NewInvalidArgument(name, "must not be empty")
		case strings.Contains(text, "/"):
			return "", logo.NewInvalidArgument(name, "must not contain '/'")
		case text == "." || text == "..":
			return "", logo.NewInvalidArgument(name, "%q is not a valid path segment", text)
		}
	}

	segment, err := runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
	if err != nil {
		return "", logo.NewInvalidArgument(name, "%v", err)
	}

	if segment == "" {
		return "", logo.NewInvalidArgument(name, "must not be empty")
	}

	return segment, nil
}
