package risk

import "strings"

// standInLoss replaces a loss the registry cannot resolve.
const standInLoss = "mse"

// lossRegistry maps accepted loss names and aliases to canonical names.
var lossRegistry = map[string]string{
	"mse":                 "mse",
	"mean_squared_error":  "mse",
	"meansquarederror":    "mse",
	"mae":                 "mae",
	"mean_absolute_error": "mae",
	"meanabsoluteerror":   "mae",
	"binary_crossentropy": "binary_crossentropy",
	"binarycrossentropy":  "binary_crossentropy",
	"huber":               "huber",
	"huber_loss":          "huber",
}

// resolveLoss returns the canonical name of a loss reference.
// Module-qualified references such as "keras.losses.mse" resolve by
// their last component.
func resolveLoss(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}
	canonical, ok := lossRegistry[key]
	return canonical, ok
}
