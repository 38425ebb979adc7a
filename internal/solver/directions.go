package solver

import (
	"fmt"

	"barrier-router/internal/models"
)

// buildDirections turns OSRM leg steps into readable maneuvers. Leg i runs
// from stops[i] to stops[i+1].
func buildDirections(legs []osrmLeg, stops []models.Stop) []models.DirectionManeuver {
	var out []models.DirectionManeuver
	for i, leg := range legs {
		for _, step := range leg.Steps {
			var stop string
			switch step.Maneuver.Type {
			case "depart":
				if i < len(stops) {
					stop = stops[i].Label
				}
			case "arrive":
				if i+1 < len(stops) {
					stop = stops[i+1].Label
				}
			}
			out = append(out, models.DirectionManeuver{
				Text:           maneuverText(step, stop),
				DistanceMeters: step.Distance,
				DurationSecs:   step.Duration,
			})
		}
	}
	return out
}

func maneuverText(step osrmStep, stop string) string {
	m := step.Maneuver
	switch m.Type {
	case "depart":
		if stop != "" {
			return withName(fmt.Sprintf("Depart from stop %s", stop), "on", step.Name)
		}
		return withName("Depart", "on", step.Name)
	case "arrive":
		if stop != "" {
			return fmt.Sprintf("Arrive at stop %s", stop)
		}
		return "Arrive at destination"
	case "turn", "end of road":
		return withName(turn(m.Modifier), "onto", step.Name)
	case "fork":
		return withName(fmt.Sprintf("Keep %s at the fork", side(m.Modifier)), "onto", step.Name)
	case "merge":
		return withName("Merge", "onto", step.Name)
	case "on ramp":
		return withName("Take the ramp", "onto", step.Name)
	case "off ramp":
		return withName("Take the exit", "onto", step.Name)
	case "roundabout", "rotary":
		if m.Exit > 0 {
			return withName(fmt.Sprintf("At the roundabout take exit %d", m.Exit), "onto", step.Name)
		}
		return withName("Enter the roundabout", "and exit onto", step.Name)
	case "new name":
		return withName("Continue", "onto", step.Name)
	default:
		if m.Modifier != "" && m.Modifier != "straight" {
			return withName(turn(m.Modifier), "onto", step.Name)
		}
		return withName("Continue", "on", step.Name)
	}
}

func turn(modifier string) string {
	switch modifier {
	case "uturn":
		return "Make a U-turn"
	case "straight", "":
		return "Go straight"
	default:
		return "Turn " + modifier
	}
}

func side(modifier string) string {
	switch modifier {
	case "left", "slight left", "sharp left":
		return "left"
	case "right", "slight right", "sharp right":
		return "right"
	default:
		return "straight"
	}
}

func withName(action, joiner, name string) string {
	if name == "" {
		return action
	}
	return fmt.Sprintf("%s %s %s", action, joiner, name)
}
