package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// updatesPartitionFiles returns every Parquet file under root whose
// (exchange, date, symbol_id) partition directories satisfy the pruning
// predicate, without opening or reading any file. symbolID nil means
// "every symbol" — used by BuildStateCheckpoints's multi-symbol scan.
func updatesPartitionFiles(root, exchange string, startDate, endDate int32, symbolID *int64) ([]partitionFile, error) {
	exchangeDir := filepath.Join(root, "exchange="+exchange)
	dateDirs, err := listDirsWithPrefix(exchangeDir, "date=")
	if err != nil {
		return nil, err
	}

	var out []partitionFile
	for _, dateDir := range dateDirs {
		days, ok := parseDatePartitionValue(dateDir)
		if !ok || days < startDate || days > endDate {
			continue
		}
		datePath := filepath.Join(exchangeDir, dateDir)

		symbolDirs, err := listDirsWithPrefix(datePath, "symbol_id=")
		if err != nil {
			return nil, err
		}
		for _, symbolDir := range symbolDirs {
			id, ok := parseInt64PartitionValue(symbolDir, "symbol_id=")
			if !ok {
				continue
			}
			if symbolID != nil && id != *symbolID {
				continue
			}
			files, err := listParquetFiles(filepath.Join(datePath, symbolDir))
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				out = append(out, partitionFile{
					path:     f,
					dateDays: days,
					symbolID: id,
				})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out, nil
}

// partitionFile is one Parquet file plus the partition identity carried by
// its directory path, which the row decoder does not need to re-derive
// from any data column.
type partitionFile struct {
	path     string
	dateDays int32
	symbolID int64
}

// checkpointPartitionDir returns the directory one (exchange, date)
// checkpoint partition lives in. It only builds the path; the directory is
// not created here.
func checkpointPartitionDir(root, exchange string, dateDays int32) string {
	return filepath.Join(root, "exchange="+exchange, "date="+formatDateDays(dateDays))
}

// checkpointPartitionDirs enumerates every existing (exchange, date)
// checkpoint partition directory under root.
func checkpointPartitionDirs(root string) ([]string, error) {
	exchangeDirs, err := listDirsWithPrefix(root, "exchange=")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, exDir := range exchangeDirs {
		exPath := filepath.Join(root, exDir)
		dateDirs, err := listDirsWithPrefix(exPath, "date=")
		if err != nil {
			return nil, err
		}
		for _, d := range dateDirs {
			out = append(out, filepath.Join(exPath, d))
		}
	}
	return out, nil
}

func listDirsWithPrefix(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func listParquetFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".parquet") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func parseDatePartitionValue(dirName string) (int32, bool) {
	value := strings.TrimPrefix(dirName, "date=")
	days, err := ParseDateDays(value)
	if err != nil {
		return 0, false
	}
	return days, true
}

func parseInt64PartitionValue(dirName, prefix string) (int64, bool) {
	value := strings.TrimPrefix(dirName, prefix)
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
