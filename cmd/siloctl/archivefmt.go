package main

import (
	"strings"

	"github.com/siloworks/silo/internal/types"
)

// detectFormat guesses a downloaded or local archive's format from its
// filename extension. A repository's configured --format is not consulted;
// a name with none of the known extensions reports false.
func detectFormat(name string) (types.RepositoryFormat, bool) {
	switch {
	case strings.HasSuffix(name, ".rpm"):
		return types.RepositoryFormatRPM, true
	case strings.HasSuffix(name, ".deb"):
		return types.RepositoryFormatDeb, true
	case strings.Contains(name, ".pkg.tar"):
		return types.RepositoryFormatArch, true
	default:
		return "", false
	}
}
