package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/yndnr/meshboot/internal/core/domain"
)

// ZoneTagPrefix prefixes the availability zone tag appended to services.
const ZoneTagPrefix = "AZ:"

// Regenerate injects the task identity into a service descriptor template.
//
// service.id becomes the instance id, service.address the task IP, and a
// zone tag is appended to service.tags. Every other member of the template
// is copied through untouched, in its original order.
//
// The zone comes from the identity; defaultZone is used only when the
// identity has none. With neither, ErrZoneUnknown is returned.
//
// Regenerate is not idempotent: feeding its output back in appends a
// second zone tag.
func Regenerate(template []byte, id domain.TaskIdentity, defaultZone string) ([]byte, error) {
	zone := id.Zone
	if zone == "" {
		zone = defaultZone
	}
	if zone == "" {
		return nil, domain.ErrZoneUnknown.WithDetails("task metadata has no availability zone and no default zone is configured")
	}

	doc, err := decodeObject(template)
	if err != nil {
		return nil, domain.ErrMalformedTemplate.WithDetails("template is not a JSON object").WithCause(err)
	}

	rawService, ok := doc.get("service")
	if !ok {
		return nil, domain.ErrMalformedTemplate.WithDetails("missing service object")
	}
	svc, err := decodeObject(rawService)
	if err != nil {
		return nil, domain.ErrMalformedTemplate.WithDetails("service is not a JSON object").WithCause(err)
	}

	rawTags, ok := svc.get("tags")
	if !ok || !isArray(rawTags) {
		return nil, domain.ErrMalformedTemplate.WithDetails("service.tags must be an array")
	}
	var tags []json.RawMessage
	if err := json.Unmarshal(rawTags, &tags); err != nil {
		return nil, domain.ErrMalformedTemplate.WithDetails("service.tags must be an array").WithCause(err)
	}

	zoneTag, err := encodeJSON(ZoneTagPrefix + zone)
	if err != nil {
		return nil, err
	}
	tags = append(tags, zoneTag)

	if err := svc.setValue("id", domain.InstanceID(id)); err != nil {
		return nil, err
	}
	if err := svc.setValue("address", id.IP); err != nil {
		return nil, err
	}
	if err := svc.setValue("tags", tags); err != nil {
		return nil, err
	}
	if err := doc.setValue("service", svc); err != nil {
		return nil, err
	}

	return encodeJSON(doc)
}

// rawObject is a JSON object whose member values are kept as raw JSON and
// whose member order is preserved.
type rawObject struct {
	keys   []string
	values map[string]json.RawMessage
}

// decodeObject parses a JSON object without interpreting member values.
// A repeated key keeps its first position and its last value.
func decodeObject(data []byte) (*rawObject, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	obj := &rawObject{values: make(map[string]json.RawMessage)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		obj.set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err == nil {
		return nil, fmt.Errorf("trailing data after object")
	}

	return obj, nil
}

func (o *rawObject) get(key string) (json.RawMessage, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *rawObject) set(key string, value json.RawMessage) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *rawObject) setValue(key string, v any) error {
	data, err := encodeJSON(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	o.set(key, data)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o *rawObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(o.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// encodeJSON marshals v compactly without HTML escaping, so template
// values such as "<PLACEHOLDER>" survive unchanged.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
