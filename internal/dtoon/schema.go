package dtoon

import "github.com/deepcompress/deepcompress/internal/domain"

// Schema is the result of field-layout inference over a sibling collection.
type Schema struct {
	// Homogeneous is true when every member carries exactly the same
	// field set (order-insensitive).
	Homogeneous bool

	// Fields holds the shared field names in the order seen on the first
	// member. Empty for heterogeneous collections.
	Fields []string
}

// InferSchema determines whether an ordered sibling collection can be
// emitted as a header-amortized block. A single member is always
// homogeneous; an empty collection is homogeneous with an empty field set.
// Any non-uniform field set makes the whole collection heterogeneous.
func InferSchema(records []domain.Entity) Schema {
	if len(records) == 0 {
		return Schema{Homogeneous: true}
	}

	fields := records[0].FieldNames()
	set := make(map[string]struct{}, len(fields))
	for _, name := range fields {
		set[name] = struct{}{}
	}

	for i := 1; i < len(records); i++ {
		if len(records[i].Fields) != len(fields) {
			return Schema{}
		}
		for _, f := range records[i].Fields {
			if _, ok := set[f.Name]; !ok {
				return Schema{}
			}
		}
	}

	return Schema{Homogeneous: true, Fields: fields}
}
