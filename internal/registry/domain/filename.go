package registry

import (
	"fmt"
	"regexp"
	"strings"
)

var unsafeFileChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// SanitizeName strips characters that are not allowed in file names.
func SanitizeName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "")
}

// FileName builds "<name>_<месяц>_<год>_реестр.<ext>" for a subscriber.
func FileName(subscriberName string, period Period, ext string) (string, error) {
	safe := strings.TrimSpace(SanitizeName(subscriberName))
	if safe == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsafeFileName, subscriberName)
	}
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s_%s_%d_реестр.%s", safe, period.MonthName(), period.Year, ext), nil
}

// FolderName is the per-period subdirectory of the output root.
func FolderName(period Period) string {
	return period.MonthName()
}
