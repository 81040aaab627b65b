package param

// Field accessors for validated trees, where the schema has already
// guaranteed presence and kind. They still return errors so a missing
// declaration shows up as a LookupError instead of a panic.

// GetString reads a string field.
func (p *Parameter) GetString(name string) (string, error) {
	f, err := p.Field(name)
	if err != nil {
		return "", err
	}
	return f.AsString()
}

// GetInt reads an integer field.
func (p *Parameter) GetInt(name string) (int, error) {
	f, err := p.Field(name)
	if err != nil {
		return 0, err
	}
	return f.AsInt()
}

// GetFloat reads a numeric field.
func (p *Parameter) GetFloat(name string) (float64, error) {
	f, err := p.Field(name)
	if err != nil {
		return 0, err
	}
	return f.AsFloat()
}

// GetBool reads a boolean field, with numeric truthiness.
func (p *Parameter) GetBool(name string) (bool, error) {
	f, err := p.Field(name)
	if err != nil {
		return false, err
	}
	return f.AsBool()
}

// GetStrings reads an array-of-strings field.
func (p *Parameter) GetStrings(name string) ([]string, error) {
	f, err := p.Field(name)
	if err != nil {
		return nil, err
	}
	return f.AsStrings()
}
