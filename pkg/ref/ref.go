package ref

import (
	"fmt"
	"reflect"
	"strconv"

	"cloud.google.com/go/firestore"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// Ref is a parsed reference. The set of implementations is closed:
// [StringRef], [IDRef], [PathRef], [SingletonRef], [EmptyRef] and [InvalidRef].
type Ref interface {
	isRef()
}

// StringRef is a plain identifier string. It is assumed to be canonical already.
type StringRef string

// IDRef is a structured reference exposing a non-empty id.
type IDRef struct {
	ID string
}

// PathRef is a structured reference exposing a hierarchical path of the form
// collection/id[/collection/id]*.
type PathRef struct {
	Path string
}

// SingletonRef wraps the only element of a one-element sequence.
type SingletonRef struct {
	Elem Ref
}

// EmptyRef is the absence of a reference: nil, "", an empty object or an empty sequence.
type EmptyRef struct{}

// InvalidRef is a value that does not have any supported reference shape.
type InvalidRef struct {
	Reason error
}

func (StringRef) isRef()    {}
func (IDRef) isRef()        {}
func (PathRef) isRef()      {}
func (SingletonRef) isRef() {}
func (EmptyRef) isRef()     {}
func (InvalidRef) isRef()   {}

// Identifier is implemented by handles that know their own document identifier.
type Identifier interface {
	RefID() string
}

// Parse classifies v into one of the [Ref] shapes. It never panics.
func Parse(v any) Ref {
	if v == nil || isNilPointer(v) {
		return EmptyRef{}
	}

	switch t := v.(type) {
	case Ref:
		return t
	case string:
		if t == "" {
			return EmptyRef{}
		}
		return StringRef(t)
	case *firestore.DocumentRef:
		return parseHandle(t.ID, t.Path)
	case firestore.DocumentRef:
		return parseHandle(t.ID, t.Path)
	case *models.RecordID:
		return parseRecordID(*t)
	case models.RecordID:
		return parseRecordID(t)
	case Identifier:
		return parseHandle(t.RefID(), "")
	case map[string]any:
		if len(t) == 0 {
			return EmptyRef{}
		}
		id, hasID := t["id"]
		path, hasPath := t["path"]
		return parseObject(id, hasID, path, hasPath)
	case map[string]string:
		if len(t) == 0 {
			return EmptyRef{}
		}
		id, hasID := t["id"]
		path, hasPath := t["path"]
		return parseObject(id, hasID, path, hasPath)
	case []any:
		return parseSequence(reflect.ValueOf(t))
	}

	return parseReflect(reflect.ValueOf(v))
}

func parseHandle(id, path string) Ref {
	switch {
	case id != "":
		return IDRef{ID: id}
	case path != "":
		return PathRef{Path: path}
	default:
		return EmptyRef{}
	}
}

func parseRecordID(r models.RecordID) Ref {
	if r.ID == nil {
		if r.Table == "" {
			return EmptyRef{}
		}
		return InvalidRef{Reason: fmt.Errorf("%w: record id for table %q has no identifier", ErrMalformed, r.Table)}
	}
	id, ok := idString(r.ID)
	if !ok {
		return InvalidRef{Reason: fmt.Errorf("%w: unsupported record identifier type %T", ErrMalformed, r.ID)}
	}
	if id == "" {
		return InvalidRef{Reason: fmt.Errorf("%w: empty record identifier", ErrMalformed)}
	}
	return IDRef{ID: id}
}

func parseObject(id any, hasID bool, path any, hasPath bool) Ref {
	if hasID {
		if s, ok := objectID(id); ok {
			return IDRef{ID: s}
		}
	}
	if hasPath {
		if s, ok := path.(string); ok && s != "" {
			return PathRef{Path: s}
		}
		return InvalidRef{Reason: fmt.Errorf("%w: path must be a non-empty string, got %T", ErrMalformed, path)}
	}
	return InvalidRef{Reason: fmt.Errorf("%w: object has neither id nor path", ErrMalformed)}
}

func parseSequence(rv reflect.Value) Ref {
	switch rv.Len() {
	case 0:
		return EmptyRef{}
	case 1:
		return SingletonRef{Elem: Parse(rv.Index(0).Interface())}
	default:
		return InvalidRef{Reason: fmt.Errorf("%w: got %d elements", ErrMultiElement, rv.Len())}
	}
}

func parseReflect(rv reflect.Value) Ref {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return EmptyRef{}
		}
		return Parse(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		return parseSequence(rv)
	case reflect.Map:
		if rv.Len() == 0 {
			return EmptyRef{}
		}
		if rv.Type().Key().Kind() != reflect.String {
			return InvalidRef{Reason: fmt.Errorf("%w: map keys must be strings, got %s", ErrMalformed, rv.Type().Key())}
		}
		id, hasID := mapIndex(rv, "id")
		path, hasPath := mapIndex(rv, "path")
		return parseObject(id, hasID, path, hasPath)
	case reflect.Struct:
		if rv.NumField() == 0 {
			return EmptyRef{}
		}
		id, hasID := structField(rv, "ID")
		path, hasPath := structField(rv, "Path")
		if !hasID && !hasPath {
			return InvalidRef{Reason: fmt.Errorf("%w: %s has neither ID nor Path", ErrMalformed, rv.Type())}
		}
		if s, ok := objectID(id); hasID && ok {
			return IDRef{ID: s}
		}
		if s, ok := path.(string); hasPath && ok && s != "" {
			return PathRef{Path: s}
		}
		if rv.IsZero() {
			return EmptyRef{}
		}
		return InvalidRef{Reason: fmt.Errorf("%w: %s has empty ID and Path", ErrMalformed, rv.Type())}
	case reflect.Bool:
		if !rv.Bool() {
			return EmptyRef{}
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if rv.IsZero() {
			return EmptyRef{}
		}
	case reflect.String:
		return Parse(rv.String())
	}
	return InvalidRef{Reason: fmt.Errorf("%w: unsupported reference type %s", ErrMalformed, rv.Type())}
}

func mapIndex(rv reflect.Value, key string) (any, bool) {
	v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

func structField(rv reflect.Value, name string) (any, bool) {
	f, ok := rv.Type().FieldByName(name)
	if !ok || !f.IsExported() {
		return nil, false
	}
	// Promoted through a nil embedded pointer counts as absent.
	v, err := rv.FieldByIndexErr(f.Index)
	if err != nil {
		return nil, false
	}
	return v.Interface(), true
}

// objectID returns the id member of an object-shaped reference. A zero number
// is absent, the same as an empty string.
func objectID(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if rv := reflect.ValueOf(v); (rv.CanInt() || rv.CanUint() || rv.CanFloat()) && rv.IsZero() {
		return "", false
	}
	s, ok := idString(v)
	return s, ok && s != ""
}

// idString formats the identifier kinds a document store can hand back.
func idString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case fmt.Stringer:
		if isNilPointer(t) {
			return "", false
		}
		return t.String(), true
	}
	return "", false
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
