package schema

// builtinMarks is the inline mark table. The link mark's href is only ever
// set through the editor's SetLink command, which gates it on the URL
// validator; the HTML parser applies the same check.
func builtinMarks() []*MarkSpec {
	return []*MarkSpec{
		{Name: "link", Tag: "a", ParseTags: []string{"a"}},
		{Name: "bold", Tag: "strong", ParseTags: []string{"strong", "b"}},
		{Name: "italic", Tag: "em", ParseTags: []string{"em", "i"}},
		{Name: "strike", Tag: "s", ParseTags: []string{"s", "del"}},
		{Name: "code", Tag: "code", ParseTags: []string{"code"}},
	}
}

// MarkForTag resolves a source tag to its mark spec, or nil.
func (r *Registry) MarkForTag(tag string) *MarkSpec {
	for _, m := range r.marks {
		for _, t := range m.ParseTags {
			if t == tag {
				return m
			}
		}
	}
	return nil
}
