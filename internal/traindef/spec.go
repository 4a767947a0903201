package traindef

import (
	"fmt"
	"strings"
)

// TrainSpec is the compiled form of a train definition.
type TrainSpec struct {
	Name  string   `json:"name"`
	Drive GearSpec `json:"drive"`
}

// GearSpec describes one gear in the train. Child order is declaration
// order and is preserved through Build, so priority ties resolve the way
// the definition reads.
type GearSpec struct {
	Name     string     `json:"name"`
	Ratio    int        `json:"ratio"`
	Phase    int        `json:"phase,omitempty"`
	Step     int        `json:"step,omitempty"`
	Priority int        `json:"priority,omitempty"`
	Gears    []GearSpec `json:"gears,omitempty"`
}

// Validation error codes (E100-E199)
const (
	ErrTrainNameEmpty  = "E100" // train name is required
	ErrGearNameEmpty   = "E101" // gear name is required
	ErrDuplicateGear   = "E102" // duplicate gear name
	ErrRatioTooSmall   = "E103" // ratio must be at least 1
	ErrPhaseOutOfRange = "E104" // phase must be in [0, ratio)
	ErrStepTooLarge    = "E105" // step must not exceed ratio
	ErrPriorityInvalid = "E106" // priority must be non-negative
	ErrDriveNotUnit    = "E107" // drive ratio must be 1
)

// ValidationError represents a train definition validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled spec against the engine's configuration
// rules. Returns all errors found (does not fail-fast). A spec that
// passes Validate always builds.
func Validate(spec *TrainSpec) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "train name is required and must be non-empty",
			Code:    ErrTrainNameEmpty,
		})
	}

	// The drive gear turns once per pulse; any other ratio would scale
	// every descendant.
	if spec.Drive.Ratio != 1 {
		errs = append(errs, ValidationError{
			Field:   "drive.ratio",
			Message: fmt.Sprintf("drive ratio must be 1, got %d", spec.Drive.Ratio),
			Code:    ErrDriveNotUnit,
		})
	}

	seen := make(map[string]bool)
	validateGear("drive", &spec.Drive, seen, &errs)
	return errs
}

func validateGear(path string, g *GearSpec, seen map[string]bool, errs *[]ValidationError) {
	if strings.TrimSpace(g.Name) == "" {
		*errs = append(*errs, ValidationError{
			Field:   path + ".name",
			Message: "gear name is required and must be non-empty",
			Code:    ErrGearNameEmpty,
		})
	} else if seen[g.Name] {
		*errs = append(*errs, ValidationError{
			Field:   path + ".name",
			Message: fmt.Sprintf("duplicate gear name: %q", g.Name),
			Code:    ErrDuplicateGear,
		})
	}
	seen[g.Name] = true

	if g.Ratio < 1 {
		*errs = append(*errs, ValidationError{
			Field:   path + ".ratio",
			Message: fmt.Sprintf("ratio must be at least 1, got %d", g.Ratio),
			Code:    ErrRatioTooSmall,
		})
	}

	if g.Phase < 0 || (g.Ratio >= 1 && g.Phase >= g.Ratio) {
		*errs = append(*errs, ValidationError{
			Field:   path + ".phase",
			Message: fmt.Sprintf("phase must be in [0, ratio), got phase=%d ratio=%d", g.Phase, g.Ratio),
			Code:    ErrPhaseOutOfRange,
		})
	}

	// A non-positive step is legal; the engine coerces it to 1.
	if g.Step > g.Ratio {
		*errs = append(*errs, ValidationError{
			Field:   path + ".step",
			Message: fmt.Sprintf("step must not exceed ratio, got step=%d ratio=%d", g.Step, g.Ratio),
			Code:    ErrStepTooLarge,
		})
	}

	if g.Priority < 0 {
		*errs = append(*errs, ValidationError{
			Field:   path + ".priority",
			Message: fmt.Sprintf("priority must be non-negative, got %d", g.Priority),
			Code:    ErrPriorityInvalid,
		})
	}

	for i := range g.Gears {
		validateGear(fmt.Sprintf("%s.gears[%d]", path, i), &g.Gears[i], seen, errs)
	}
}
