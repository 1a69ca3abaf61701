package util

import (
	"archive/zip"
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/mholt/archives"
)

// CreateCBZ packs every file of folder into output. Entries live under
// nameInArchive/ and the archive carries a directory entry of that name.
func CreateCBZ(ctx context.Context, folder, nameInArchive, output string) error {
	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		folder: nameInArchive,
	})
	if err != nil {
		return fmt.Errorf("cbz: list %s: %w", folder, err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].NameInArchive < files[j].NameInArchive
	})

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("cbz: %w", err)
	}

	format := archives.Zip{Compression: zip.Deflate}
	err = format.Archive(ctx, out, files)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		// A half written archive is never left next to the workspace.
		if rerr := os.Remove(output); rerr != nil {
			log.Printf("error removing partial archive %s: %v", output, rerr)
		}
		return fmt.Errorf("cbz: write %s: %w", output, err)
	}

	return nil
}

// VerifyCBZ re-reads output and checks that every regular file in folder
// is present with the same size.
func VerifyCBZ(ctx context.Context, output, folder string) error {
	want := map[string]int64{}
	entries, err := os.ReadDir(folder)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		want[e.Name()] = info.Size()
	}

	got, err := ListCBZ(ctx, output)
	if err != nil {
		return err
	}

	for name, size := range want {
		found := false
		for entry, entrySize := range got {
			if path.Base(entry) == name && entrySize == size {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("cbz: %s is missing %s (%d bytes)", output, name, size)
		}
	}

	return nil
}

// ListCBZ returns the regular file entries of a cbz with their sizes.
func ListCBZ(ctx context.Context, output string) (map[string]int64, error) {
	f, err := os.Open(output)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	got := map[string]int64{}
	err = archives.Zip{}.Extract(ctx, f, func(_ context.Context, info archives.FileInfo) error {
		if info.IsDir() {
			return nil
		}
		got[filepath.ToSlash(info.NameInArchive)] = info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cbz: read %s: %w", output, err)
	}

	return got, nil
}
