// Package extract opens a downloaded asset according to its detected
// archive format, yields the entry that is the tool's executable, and
// classifies that entry's binary format so the caller can reject
// artifacts built for the wrong OS before they are ever written to the
// tool store.
package extract

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rojo-rbx/rokit/internal/rerr"
)

// Format is the archive/compression format of a downloaded asset, a
// closed enum: {Zip, Tar, TarGz, Gz, Plain}. tar.xz is deliberately
// not a member (see DESIGN.md).
type Format int

const (
	FormatPlain Format = iota
	FormatGzip
	FormatZip
	FormatTar
	FormatTarGz
)

// DetectFormat classifies an asset's archive format from its
// filename, matching the last tokens/extensions per §4.4.1.
func DetectFormat(lowerName string) Format {
	switch {
	case strings.HasSuffix(lowerName, ".tar.gz"), strings.HasSuffix(lowerName, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(lowerName, ".tar"):
		return FormatTar
	case strings.HasSuffix(lowerName, ".zip"):
		return FormatZip
	case strings.HasSuffix(lowerName, ".gz"):
		return FormatGzip
	default:
		return FormatPlain
	}
}

// BinaryKind is the executable format detected by inspecting a
// candidate's leading bytes.
type BinaryKind int

const (
	BinaryUnknown BinaryKind = iota
	BinaryELF
	BinaryMachO
	BinaryPE
	BinaryScript
)

// entry is one candidate file pulled from an archive (or the sole
// payload of a gz/plain asset), not yet known to be the right one.
type entry struct {
	name string // entry path as stored in the archive (or asset filename for gz/plain)
	data []byte
}

// Candidate is the single chosen executable extracted from an asset,
// with its detected binary format.
type Candidate struct {
	Name string
	Data []byte
	Kind BinaryKind
}

// Extract opens data (the full downloaded asset body) according to
// format, finds every file entry that could plausibly be the tool's
// binary, and returns the single best match for toolName. archiveName
// is the original asset filename, used by the gz and plain paths to
// name the payload.
func Extract(format Format, archiveName string, data []byte, toolName string) (Candidate, error) {
	var entries []entry
	var err error

	switch format {
	case FormatZip:
		entries, err = readZip(data)
	case FormatTar:
		entries, err = readTar(bytes.NewReader(data))
	case FormatTarGz:
		gz, gzErr := gzip.NewReader(bytes.NewReader(data))
		if gzErr != nil {
			return Candidate{}, rerr.Wrap(rerr.CategoryExtract, rerr.CodeArchiveCorrupt, "opening gzip stream of "+archiveName, gzErr)
		}
		defer gz.Close()
		entries, err = readTar(gz)
	case FormatGzip:
		gz, gzErr := gzip.NewReader(bytes.NewReader(data))
		if gzErr != nil {
			return Candidate{}, rerr.Wrap(rerr.CategoryExtract, rerr.CodeArchiveCorrupt, "opening gzip stream of "+archiveName, gzErr)
		}
		defer gz.Close()
		payload, readErr := io.ReadAll(gz)
		if readErr != nil {
			return Candidate{}, rerr.Wrap(rerr.CategoryExtract, rerr.CodeArchiveCorrupt, "decompressing "+archiveName, readErr)
		}
		entries = []entry{{name: strings.TrimSuffix(filepath.Base(archiveName), ".gz"), data: payload}}
	case FormatPlain:
		entries = []entry{{name: filepath.Base(archiveName), data: data}}
	default:
		return Candidate{}, rerr.New(rerr.CategoryExtract, rerr.CodeArchiveCorrupt, fmt.Sprintf("unsupported archive format %d", format))
	}

	if err != nil {
		return Candidate{}, err
	}
	if len(entries) == 0 {
		return Candidate{}, rerr.New(rerr.CategoryExtract, rerr.CodeNoExecutableInArchive, "archive "+archiveName+" contains no files")
	}

	return pickCandidate(entries, toolName, archiveName)
}

// readZip iterates the central directory, rejecting path-traversal
// entries, and returns every regular file entry.
func readZip(data []byte) ([]entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, rerr.Wrap(rerr.CategoryExtract, rerr.CodeArchiveCorrupt, "opening zip archive", err)
	}

	var entries []entry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !safeArchivePath(f.Name) {
			return nil, rerr.New(rerr.CategoryExtract, rerr.CodeArchiveCorrupt, "unsafe path in zip archive: "+f.Name)
		}
		if isOSMetadataPath(f.Name) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, rerr.Wrap(rerr.CategoryExtract, rerr.CodeArchiveCorrupt, "reading zip entry "+f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, rerr.Wrap(rerr.CategoryExtract, rerr.CodeArchiveCorrupt, "reading zip entry "+f.Name, err)
		}

		entries = append(entries, entry{name: f.Name, data: body})
	}
	return entries, nil
}

// readTar streams entries from an (already-decompressed) tar reader.
func readTar(r io.Reader) ([]entry, error) {
	tr := tar.NewReader(r)
	var entries []entry

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rerr.Wrap(rerr.CategoryExtract, rerr.CodeArchiveCorrupt, "reading tar header", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if !safeArchivePath(hdr.Name) {
			return nil, rerr.New(rerr.CategoryExtract, rerr.CodeArchiveCorrupt, "unsafe path in tar archive: "+hdr.Name)
		}

		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, rerr.Wrap(rerr.CategoryExtract, rerr.CodeArchiveCorrupt, "reading tar entry "+hdr.Name, err)
		}

		entries = append(entries, entry{name: hdr.Name, data: body})
	}
	return entries, nil
}

// safeArchivePath rejects ".." segments and absolute roots, per §4.5.
func safeArchivePath(name string) bool {
	if filepath.IsAbs(name) {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

func isOSMetadataPath(name string) bool {
	return name == "__MACOSX" || strings.HasPrefix(name, "__MACOSX/")
}

// pickCandidate selects the entry matching toolName (basename, minus
// ".exe", case-insensitive) and detects its binary kind. If multiple
// entries qualify, an exact basename match wins over others; ties
// break by shallowest path then lexicographic, per §4.5.
func pickCandidate(entries []entry, toolName, archiveName string) (Candidate, error) {
	type scored struct {
		e          entry
		exactMatch bool
		depth      int
	}

	lowerTool := strings.ToLower(toolName)
	var matches []scored

	for _, e := range entries {
		base := filepath.Base(e.name)
		stripped := strings.TrimSuffix(strings.ToLower(base), ".exe")
		kind := DetectBinaryKind(e.data)
		if kind == BinaryUnknown {
			continue
		}

		exact := stripped == lowerTool
		if !exact && !strings.Contains(stripped, lowerTool) {
			continue
		}

		depth := strings.Count(filepath.ToSlash(e.name), "/")
		matches = append(matches, scored{e: e, exactMatch: exact, depth: depth})
	}

	if len(matches) == 0 {
		return Candidate{}, rerr.New(rerr.CategoryExtract, rerr.CodeNoExecutableInArchive,
			fmt.Sprintf("no executable named %q found in %s", toolName, archiveName))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].exactMatch != matches[j].exactMatch {
			return matches[i].exactMatch
		}
		if matches[i].depth != matches[j].depth {
			return matches[i].depth < matches[j].depth
		}
		return matches[i].e.name < matches[j].e.name
	})

	best := matches[0]
	return Candidate{
		Name: filepath.Base(best.e.name),
		Data: best.e.data,
		Kind: DetectBinaryKind(best.e.data),
	}, nil
}

// RequiredBinaryKind returns the BinaryKind the given OS expects a
// native executable to be.
func RequiredBinaryKind(osKind string) BinaryKind {
	switch osKind {
	case "windows":
		return BinaryPE
	case "macos":
		return BinaryMachO
	default:
		return BinaryELF
	}
}

// MakeExecutable sets the executable bit on Unix; a no-op on Windows
// where execute permission is not a filesystem attribute.
func MakeExecutable(path string) error {
	return makeExecutable(path)
}
