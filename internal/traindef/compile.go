package traindef

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// LoadFile reads a train definition file and compiles it.
// The filename is attached to the CUE value so diagnostics carry
// source positions.
func LoadFile(path string) (*TrainSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read train definition: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	trainVal := v.LookupPath(cue.ParsePath("train"))
	if !trainVal.Exists() {
		return nil, &CompileError{
			Field:   "train",
			Message: "train definition is required",
			Pos:     v.Pos(),
		}
	}

	return Compile(trainVal)
}

// Compile parses a CUE value into a TrainSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the train struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`train: { name: "clock", drive: {...} }`)
//	spec, err := Compile(v.LookupPath(cue.ParsePath("train")))
func Compile(v cue.Value) (*TrainSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &TrainSpec{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "name",
			Message: "train name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Name = name

	driveVal := v.LookupPath(cue.ParsePath("drive"))
	if !driveVal.Exists() {
		return nil, &CompileError{
			Field:   "drive",
			Message: "drive gear is required",
			Pos:     v.Pos(),
		}
	}
	drive, err := compileGear("drive", driveVal, true)
	if err != nil {
		return nil, err
	}
	spec.Drive = *drive

	return spec, nil
}

// compileGear parses one gear struct, recursing into its gears list.
// The drive gear may omit ratio (it defaults to 1); every other gear
// must declare one.
func compileGear(path string, v cue.Value, drive bool) (*GearSpec, error) {
	g := &GearSpec{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   path + ".name",
			Message: "gear name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	g.Name = name

	ratioVal := v.LookupPath(cue.ParsePath("ratio"))
	switch {
	case ratioVal.Exists():
		g.Ratio, err = compileInt(path+".ratio", ratioVal)
		if err != nil {
			return nil, err
		}
	case drive:
		g.Ratio = 1
	default:
		return nil, &CompileError{
			Field:   path + ".ratio",
			Message: "gear ratio is required",
			Pos:     v.Pos(),
		}
	}

	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"phase", &g.Phase},
		{"step", &g.Step},
		{"priority", &g.Priority},
	} {
		fieldVal := v.LookupPath(cue.ParsePath(f.name))
		if !fieldVal.Exists() {
			continue
		}
		*f.dst, err = compileInt(path+"."+f.name, fieldVal)
		if err != nil {
			return nil, err
		}
	}

	gearsVal := v.LookupPath(cue.ParsePath("gears"))
	if gearsVal.Exists() {
		iter, err := gearsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			child, err := compileGear(fmt.Sprintf("%s.gears[%d]", path, i), iter.Value(), false)
			if err != nil {
				return nil, err
			}
			g.Gears = append(g.Gears, *child)
		}
	}

	return g, nil
}

// compileInt extracts an integer field. Floats are forbidden; phase
// arithmetic is whole units only.
func compileInt(field string, v cue.Value) (int, error) {
	n, err := v.Int64()
	if err != nil {
		if v.IncompleteKind() == cue.FloatKind {
			return 0, &CompileError{
				Field:   field,
				Message: "float values are forbidden - use whole phase units",
				Pos:     v.Pos(),
			}
		}
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
