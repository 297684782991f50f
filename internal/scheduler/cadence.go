package scheduler

import "fmt"

// cadences maps the check intervals the API offers to cron specs.
var cadences = map[int]string{
	30:  "@every 30s",
	60:  "@every 1m",
	300: "@every 5m",
	600: "@every 10m",
	900: "@every 15m",
}

// cadenceFor translates an interval in seconds into a cron spec.
// Unlisted intervals of a minute or more run on whole minutes,
// rounding down. Anything shorter than a minute that is not a preset
// is rejected.
func cadenceFor(seconds int) (string, error) {
	if spec, ok := cadences[seconds]; ok {
		return spec, nil
	}
	if seconds >= 60 {
		return fmt.Sprintf("@every %dm", seconds/60), nil
	}
	return "", fmt.Errorf("unsupported check interval %ds", seconds)
}
