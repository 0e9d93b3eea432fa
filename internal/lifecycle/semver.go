package lifecycle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pharmadocs/dmsd/internal/dmserr"
)

// parseVersionString splits "vMAJOR.MINOR" into its components.
func parseVersionString(s string) (major, minor int, err error) {
	s = strings.TrimPrefix(s, "v")
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return 0, 0, dmserr.New(dmserr.ErrValidation, fmt.Sprintf("malformed version string %q", s))
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, dmserr.New(dmserr.ErrValidation, fmt.Sprintf("malformed version string %q", s))
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, dmserr.New(dmserr.ErrValidation, fmt.Sprintf("malformed version string %q", s))
	}
	return major, minor, nil
}

// bumpMinor increments the minor component: v1.2 -> v1.3.
func bumpMinor(parent string) (string, error) {
	major, minor, err := parseVersionString(parent)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("v%d.%d", major, minor+1), nil
}

// bumpMajor increments the major component and resets minor to 0: v1.7 -> v2.0.
func bumpMajor(parent string) (string, error) {
	major, _, err := parseVersionString(parent)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("v%d.0", major+1), nil
}

// firstPublishedVersionString is the sole version-string renaming event:
// the first Publish of a document's only version always produces v1.0,
// regardless of what pre-release string it carried as a Draft.
const firstPublishedVersionString = "v1.0"
