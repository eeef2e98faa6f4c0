package draft

import (
	"errors"
	"fmt"
)

// Validate checks the structural guarantees of a draft: every material is used
// by exactly one segment, every segment points at a known material, each track
// is strictly time ordered without overlap, and the duration is the end of the
// longest track.
func Validate(c Content) error {
	var errs []error

	refs := map[string]int{}
	for _, m := range c.Materials.Images {
		refs[m.ID] = 0
	}
	for _, m := range c.Materials.Audios {
		if _, dup := refs[m.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate material id %s", m.ID))
		}
		refs[m.ID] = 0
	}

	var longest int64
	for _, tr := range c.Tracks {
		var end int64
		for i, s := range tr.Segments {
			n, ok := refs[s.MaterialID]
			if !ok {
				errs = append(errs, fmt.Errorf("%s segment %s references unknown material %s", tr.Type, s.ID, s.MaterialID))
			} else {
				refs[s.MaterialID] = n + 1
			}
			if s.TargetTimerange.Duration <= 0 {
				errs = append(errs, fmt.Errorf("%s segment %s has non-positive duration", tr.Type, s.ID))
			}
			if i > 0 && s.TargetTimerange.Start < end {
				errs = append(errs, fmt.Errorf("%s segment %s starts at %d before previous end %d", tr.Type, s.ID, s.TargetTimerange.Start, end))
			}
			end = s.TargetTimerange.Start + s.TargetTimerange.Duration
		}
		if end > longest {
			longest = end
		}
	}
	for id, n := range refs {
		if n != 1 {
			errs = append(errs, fmt.Errorf("material %s referenced by %d segments", id, n))
		}
	}
	if c.Duration != longest {
		errs = append(errs, fmt.Errorf("duration %d does not match longest track end %d", c.Duration, longest))
	}
	return errors.Join(errs...)
}
