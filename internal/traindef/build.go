package traindef

import (
	"fmt"

	"github.com/tickdrive/gearbox"
)

// Train is a live gear tree built from a compiled spec. Every declared
// gear is a gearbox.Relay, so callers can bind observers by name after
// the build.
type Train struct {
	spec   *TrainSpec
	root   *gearbox.Relay
	byName map[string]*gearbox.Relay
	names  []string
}

// Build turns a compiled spec into live gears, one Relay per declared
// gear, connected in declaration order so priority ties keep that
// order. Specs that pass Validate always build; the validation errors
// are returned here so callers who skip Validate still cannot build a
// broken train.
func Build(spec *TrainSpec) (*Train, error) {
	if errs := Validate(spec); len(errs) > 0 {
		return nil, fmt.Errorf("traindef: build %q: %w", spec.Name, errs[0])
	}

	t := &Train{
		spec:   spec,
		root:   gearbox.NewRelay(gearOptions(&spec.Drive)...),
		byName: make(map[string]*gearbox.Relay),
	}
	t.register(spec.Drive.Name, t.root)
	if err := t.connectChildren(t.root, &spec.Drive); err != nil {
		return nil, err
	}
	return t, nil
}

func gearOptions(g *GearSpec) []gearbox.Option {
	var opts []gearbox.Option
	if g.Phase != 0 {
		opts = append(opts, gearbox.WithPhase(g.Phase))
	}
	if g.Step != 0 {
		opts = append(opts, gearbox.WithStep(g.Step))
	}
	if g.Priority != 0 {
		opts = append(opts, gearbox.WithPriority(g.Priority))
	}
	return opts
}

func (t *Train) register(name string, r *gearbox.Relay) {
	t.byName[name] = r
	t.names = append(t.names, name)
}

func (t *Train) connectChildren(parent *gearbox.Relay, spec *GearSpec) error {
	for i := range spec.Gears {
		child := &spec.Gears[i]
		r := gearbox.NewRelay()
		if err := r.Connect(parent.Gear, child.Ratio, gearOptions(child)...); err != nil {
			return fmt.Errorf("traindef: connect %q: %w", child.Name, err)
		}
		t.register(child.Name, r)
		if err := t.connectChildren(r, child); err != nil {
			return err
		}
	}
	return nil
}

// Name returns the declared train name.
func (t *Train) Name() string { return t.spec.Name }

// Spec returns the definition the train was built from.
func (t *Train) Spec() *TrainSpec { return t.spec }

// Root returns the drive gear, the one that receives raw pulses.
func (t *Train) Root() *gearbox.Relay { return t.root }

// Gear returns the relay for a declared gear name, or nil if the train
// declares no such gear.
func (t *Train) Gear(name string) *gearbox.Relay { return t.byName[name] }

// Names returns the declared gear names in declaration order, drive
// first.
func (t *Train) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Drive advances the whole train by pulses ticks of the root gear.
func (t *Train) Drive(pulses int) {
	for i := 0; i < pulses; i++ {
		t.root.Tick()
	}
}
