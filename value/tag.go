package value

// Tag identifies the dynamic shape of a value crossing the boundary.
// The numeric codes are part of the wire format.
type Tag uint8

const (
	TagNull Tag = iota + 1
	TagTensor
	TagBool
	TagLong
	TagDouble
	TagString
	TagTuple
	TagBoolList
	TagLongList
	TagDoubleList
	TagTensorList
	TagList
	TagDictStringKey
	TagDictLongKey
)

// NumTags is the number of defined tags.
const NumTags = int(TagDictLongKey)

var tagNames = [...]string{
	TagNull:          "Null",
	TagTensor:        "Tensor",
	TagBool:          "Bool",
	TagLong:          "Long",
	TagDouble:        "Double",
	TagString:        "String",
	TagTuple:         "Tuple",
	TagBoolList:      "BoolList",
	TagLongList:      "LongList",
	TagDoubleList:    "DoubleList",
	TagTensorList:    "TensorList",
	TagList:          "List",
	TagDictStringKey: "DictStringKey",
	TagDictLongKey:   "DictLongKey",
}

func (t Tag) String() string {
	if t.Valid() {
		return tagNames[t]
	}
	return "unknown"
}

// Valid reports whether t belongs to the closed enumeration.
func (t Tag) Valid() bool {
	return t >= TagNull && t <= TagDictLongKey
}

// IsSequence reports whether the payload is an ordered sequence.
func (t Tag) IsSequence() bool {
	switch t {
	case TagTuple, TagBoolList, TagLongList, TagDoubleList, TagTensorList, TagList:
		return true
	}
	return false
}

// IsHomogeneous reports whether the tag is one of the typed list tags.
func (t Tag) IsHomogeneous() bool {
	switch t {
	case TagBoolList, TagLongList, TagDoubleList, TagTensorList:
		return true
	}
	return false
}

// IsDict reports whether the payload is a keyed mapping.
func (t Tag) IsDict() bool {
	return t == TagDictStringKey || t == TagDictLongKey
}

// ElemTag returns the element tag of a homogeneous list tag, or 0.
func (t Tag) ElemTag() Tag {
	switch t {
	case TagBoolList:
		return TagBool
	case TagLongList:
		return TagLong
	case TagDoubleList:
		return TagDouble
	case TagTensorList:
		return TagTensor
	}
	return 0
}

// ParseTag resolves a tag by name.
func ParseTag(name string) (Tag, bool) {
	for i, n := range tagNames {
		if n != "" && n == name {
			return Tag(i), true
		}
	}
	return 0, false
}
