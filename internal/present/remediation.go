package present

import "strings"

// Family is the coarse agent family used to pick remediation steps.
type Family string

const (
	FamilyChrome  Family = "chrome"
	FamilyEdge    Family = "edge"
	FamilyFirefox Family = "firefox"
	FamilySafari  Family = "safari"
	FamilyGeneric Family = "generic"
)

// DetectFamily classifies a User-Agent string. Edge is checked before
// Chrome because Edge advertises both tokens.
func DetectFamily(userAgent string) Family {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge"):
		return FamilyEdge
	case strings.Contains(ua, "chrome") || strings.Contains(ua, "chromium"):
		return FamilyChrome
	case strings.Contains(ua, "firefox"):
		return FamilyFirefox
	case strings.Contains(ua, "safari"):
		return FamilySafari
	default:
		return FamilyGeneric
	}
}

// remediationSteps are the ordered microphone-permission recovery
// procedures per family. Guidance text only, nothing here feeds back
// into session state.
var remediationSteps = map[Family][]string{
	FamilyChrome: {
		"Click the lock icon to the left of the address bar.",
		"Set Microphone to Allow.",
		"Reload the page and start listening again.",
	},
	FamilyEdge: {
		"Click the lock icon to the left of the address bar.",
		"Select Permissions for this site and set Microphone to Allow.",
		"Reload the page and start listening again.",
	},
	FamilyFirefox: {
		"Click the microphone icon in the address bar.",
		"Remove the Blocked Temporarily entry for the microphone.",
		"Start listening again and choose Allow when prompted.",
	},
	FamilySafari: {
		"Open Safari Settings and choose Websites, then Microphone.",
		"Set this site to Allow.",
		"Reload the page and start listening again.",
	},
	FamilyGeneric: {
		"Open your browser's site permissions for this page.",
		"Allow microphone access.",
		"Reload the page and start listening again.",
	},
}

// StepsFor returns the remediation procedure for a family, falling
// back to the generic procedure for unknown families.
func StepsFor(family Family) []string {
	if steps, ok := remediationSteps[family]; ok {
		return steps
	}
	return remediationSteps[FamilyGeneric]
}
