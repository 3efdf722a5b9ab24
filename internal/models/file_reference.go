package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// FileReference describes one remote result file. Values are built with
// NewFileReference and never change afterwards; == compares all fields.
type FileReference struct {
	path          string
	fileSize      int64
	downloadToken string
	jobID         JobID
}

// NewFileReference normalizes path and size. The stored path never has a
// root or volume, so it can be joined under any directory. size may be any
// integer, an integral float, a json.Number or a decimal string.
func NewFileReference(filePath string, size any, downloadToken string, jobID JobID) (FileReference, error) {
	n, err := parseFileSize(size)
	if err != nil {
		return FileReference{}, &ValidationError{Field: "file_size", Value: size, Err: err}
	}
	return FileReference{
		path:          removePathAnchor(filePath),
		fileSize:      n,
		downloadToken: downloadToken,
		jobID:         jobID,
	}, nil
}

// FileReferenceFromFields builds a reference from a snake_case file node
// ({path, file_size, download_token}) as returned by the API. path and
// download_token must be present as strings.
func FileReferenceFromFields(fields map[string]any, jobID JobID) (FileReference, error) {
	p, err := requiredString(fields, "path")
	if err != nil {
		return FileReference{}, err
	}
	token, err := requiredString(fields, "download_token")
	if err != nil {
		return FileReference{}, err
	}
	return NewFileReference(p, fields["file_size"], token, jobID)
}

func requiredString(fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", &ValidationError{Field: key, Value: v, Err: errors.New("missing")}
	}
	str, ok := v.(string)
	if !ok {
		return "", &ValidationError{Field: key, Value: v, Err: fmt.Errorf("not a string: %T", v)}
	}
	return str, nil
}

func (f FileReference) Path() string          { return f.path }
func (f FileReference) FileSize() int64       { return f.fileSize }
func (f FileReference) DownloadToken() string { return f.downloadToken }
func (f FileReference) JobID() JobID          { return f.jobID }

func (f FileReference) String() string {
	return fmt.Sprintf("FileReference(path=%s)", f.path)
}

// OutputPath joins the reference under root, keeping the relative
// directories when preserveStructure is set and only the file name otherwise.
func (f FileReference) OutputPath(root string, preserveStructure bool) string {
	if preserveStructure {
		return filepath.Join(root, filepath.FromSlash(f.path))
	}
	return filepath.Join(root, path.Base(f.path))
}

// removePathAnchor strips the volume name and any leading separators. The
// path is cleaned as if rooted, so ".." can never climb above the top.
func removePathAnchor(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, filepath.VolumeName(p))
	return strings.TrimLeft(path.Clean("/"+p), "/")
}

func parseFileSize(v any) (int64, error) {
	var n int64
	switch size := v.(type) {
	case int:
		n = int64(size)
	case int8:
		n = int64(size)
	case int16:
		n = int64(size)
	case int32:
		n = int64(size)
	case int64:
		n = size
	case uint:
		return fromUint(uint64(size))
	case uint8:
		n = int64(size)
	case uint16:
		n = int64(size)
	case uint32:
		n = int64(size)
	case uint64:
		return fromUint(size)
	case float32:
		return fromFloat(float64(size))
	case float64:
		return fromFloat(size)
	case json.Number:
		i, err := size.Int64()
		if err != nil {
			return 0, err
		}
		n = i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(size), 10, 64)
		if err != nil {
			return 0, err
		}
		n = i
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if n < 0 {
		return 0, errors.New("negative size")
	}
	return n, nil
}

func fromUint(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, errors.New("size overflows int64")
	}
	return int64(u), nil
}

// fromFloat truncates toward zero.
func fromFloat(f float64) (int64, error) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, errors.New("not a finite number")
	case f < 0:
		return 0, errors.New("negative size")
	case f >= math.MaxInt64:
		return 0, errors.New("size overflows int64")
	}
	return int64(f), nil
}
