package reswave

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"
)

const (
	filesPath           = "/files"
	defaultDownloadName = "downloaded-file"
)

type Files struct {
	Items []*FileData
}

type FileData struct {
	ID        string         `json:"id,omitempty"`
	Versions  []*FileVersion `json:"versions"`
	Analytics struct {
		TotalVersions int       `json:"totalVersions"`
		LastAccessed  time.Time `json:"lastAccessed"`
	} `json:"analytics"`
}

type FileVersion struct {
	ID                 string    `json:"id" yaml:"id"`
	FileID             string    `json:"fileId,omitempty" yaml:"file_id,omitempty"`
	Filename           string    `json:"filename" yaml:"filename"`
	VersionNumber      int       `json:"versionNumber" yaml:"version_number"`
	ChangesDescription string    `json:"changesDescription,omitempty" yaml:"changes_description,omitempty"`
	UploadedAt         time.Time `json:"uploadedAt" yaml:"uploaded_at"`
	Size               int64     `json:"size" yaml:"size"`
	// FileIndex is the position of the owning file in the listing. The API
	// does not send a file id, so versions are grouped by it.
	FileIndex int `json:"-" yaml:"-"`
}

// Download is a fetched file body.
type Download struct {
	Filename    string
	ContentType string
	Content     []byte
}

func (c *Client) ListFiles(ctx context.Context) (*Files, error) {
	var items []*FileData
	if err := c.getData(ctx, c.endpoint(filesPath), &items); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	return &Files{Items: items}, nil
}

// Download fetches a file, or one of its versions when versionID is set.
func (c *Client) Download(ctx context.Context, fileID, versionID string) (*Download, error) {
	if fileID == "" {
		return nil, fmt.Errorf("file id is required")
	}

	path := fmt.Sprintf("%s/%s/download", filesPath, url.PathEscape(fileID))
	if versionID != "" {
		path = fmt.Sprintf("%s/%s/versions/%s/download", filesPath, url.PathEscape(fileID), url.PathEscape(versionID))
	}

	resp, data, err := c.get(ctx, c.endpoint(path))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: %w", fileID, statusError(resp, data))
	}

	return &Download{
		Filename:    attachmentName(resp.Header.Get("Content-Disposition"), defaultDownloadName),
		ContentType: resp.Header.Get("Content-Type"),
		Content:     data,
	}, nil
}

func (f *Files) Len() int {
	return len(f.Items)
}

// Versions flattens all file versions, newest upload first, and records the
// owning file of every version in FileIndex.
func (f *Files) Versions() *Versions {
	versions := &Versions{}
	for i, file := range f.Items {
		for _, v := range file.Versions {
			if v == nil {
				continue
			}
			if v.FileID == "" {
				v.FileID = file.ID
			}
			v.FileIndex = i
			versions.Items = append(versions.Items, v)
		}
	}

	sort.SliceStable(versions.Items, func(i, j int) bool {
		return versions.Items[i].UploadedAt.After(versions.Items[j].UploadedAt)
	})

	return versions
}

type Versions struct {
	Items []*FileVersion
}

func (v *Versions) Len() int {
	return len(v.Items)
}

func (v *Versions) FindByID(id string) *FileVersion {
	for _, version := range v.Items {
		if version.ID == id {
			return version
		}
	}
	return nil
}

func (v *Versions) IDs() []string {
	ids := make([]string, 0, len(v.Items))
	for _, version := range v.Items {
		ids = append(ids, version.ID)
	}
	return ids
}

// Exclude removes versions whose id is in ids and returns the removed ids.
// Order of the remaining versions is preserved.
func (v *Versions) Exclude(ids []string) []string {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	return v.Keep(func(version *FileVersion) bool {
		_, found := drop[version.ID]
		return !found
	})
}

// Keep retains versions for which keep returns true and returns the removed ids.
func (v *Versions) Keep(keep func(*FileVersion) bool) []string {
	var removed []string
	kept := v.Items[:0]
	for _, version := range v.Items {
		if keep(version) {
			kept = append(kept, version)
			continue
		}
		removed = append(removed, version.ID)
	}
	v.Items = kept

	return removed
}

// Labels renders one line per version for interactive selection.
func (v *Versions) Labels() []string {
	labels := make([]string, 0, len(v.Items))
	for _, version := range v.Items {
		labels = append(labels, fmt.Sprintf("%s %s (v%d, %s)",
			version.ID, version.Filename, version.VersionNumber, version.UploadedAt.Format("2006-01-02 15:04")))
	}
	return labels
}
