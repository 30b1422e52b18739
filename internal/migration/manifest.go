package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

// migrationManifest walks the embedded up-migrations once and returns the
// highest version together with a checksum over the sorted file set. The
// checksum is recorded in schema_state so a drifted binary refuses to serve.
func migrationManifest() (uint, string, error) {
	paths, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.up.sql")
	if err != nil {
		return 0, "", fmt.Errorf("scan migrations: %w", err)
	}
	if len(paths) == 0 {
		return 0, "", errors.New("no embedded migrations")
	}
	sort.Strings(paths)

	var latest uint
	digest := sha256.New()
	for _, path := range paths {
		name := strings.TrimPrefix(path, migrationsDir+"/")
		prefix, _, found := strings.Cut(name, "_")
		if !found {
			return 0, "", fmt.Errorf("migration %s has no version prefix", name)
		}
		version, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil || version == 0 {
			return 0, "", fmt.Errorf("migration %s has no version prefix", name)
		}
		if uint(version) > latest {
			latest = uint(version)
		}

		content, err := embeddedMigrations.ReadFile(path)
		if err != nil {
			return 0, "", fmt.Errorf("read migration %s: %w", name, err)
		}
		digest.Write([]byte(name))
		digest.Write([]byte{'\n'})
		digest.Write(content)
		digest.Write([]byte{'\n'})
	}

	return latest, hex.EncodeToString(digest.Sum(nil)), nil
}
