package version

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
)

var (
	identityOnce sync.Once
	identityVal  string
)

// identityMetadata returns a build identity that changes on rebuilds:
// the short vcs revision, a dirty marker, and a hash of the executable,
// joined by dots. Any missing component is skipped.
func identityMetadata() string {
	identityOnce.Do(func() {
		var parts []string
		rev, dirty := vcsInfo()
		if rev != "" {
			parts = append(parts, rev)
		}
		if dirty {
			parts = append(parts, "dirty")
		}
		if hash := executableHash(); hash != "" {
			parts = append(parts, hash)
		}
		identityVal = strings.Join(parts, ".")
	})
	return identityVal
}

func vcsInfo() (rev12 string, dirty bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return "", false
	}

	var revision string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = strings.TrimSpace(s.Value)
		case "vcs.modified":
			v := strings.TrimSpace(strings.ToLower(s.Value))
			dirty = v == "true" || v == "1"
		}
	}

	if len(revision) > 12 {
		revision = revision[:12]
	}
	return revision, dirty
}

func executableHash() string {
	exe, err := os.Executable()
	if err != nil || strings.TrimSpace(exe) == "" {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil && resolved != "" {
		exe = resolved
	}

	f, err := os.Open(exe)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	hexSum := hex.EncodeToString(h.Sum(nil))
	if len(hexSum) > 12 {
		hexSum = hexSum[:12]
	}
	return hexSum
}
