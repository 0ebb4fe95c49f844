// Package faces groups face descriptors into identity clusters with a greedy
// single-pass assignment. Clustering is deterministic for a given descriptor
// order.
package faces

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kozaktomas/photo-index/internal/constants"
	"github.com/kozaktomas/photo-index/internal/models"
)

// Cluster is one face identity: every member descriptor assigned to it plus
// the files it appears in. Descriptors are kept so that new faces can be
// compared against the nearest member, not an average.
type Cluster struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Hidden      bool        `json:"hidden"`
	Descriptors [][]float32 `json:"descriptors"`
	FaceCount   int         `json:"face_count"`
	FileIDs     []string    `json:"file_ids"`
}

// similarity scores a descriptor against the cluster: the maximum similarity
// over all member descriptors.
func (c *Cluster) similarity(descriptor []float32) float64 {
	best := 0.0
	for _, member := range c.Descriptors {
		if sim := Similarity(descriptor, member); sim > best {
			best = sim
		}
	}
	return best
}

// ImageCount is the number of distinct files the identity appears in.
func (c *Cluster) ImageCount() int {
	return len(c.FileIDs)
}

func (c *Cluster) hasFile(fileID string) bool {
	for _, id := range c.FileIDs {
		if id == fileID {
			return true
		}
	}
	return false
}

// Similarity converts euclidean distance between descriptors into a score
// where 1 is identical. Descriptors from the face model are unit length, so
// the score lands in a usable range.
func Similarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return 1 - math.Sqrt(sum)
}

// Clusterer assigns face descriptors to identity clusters as they arrive.
type Clusterer struct {
	threshold float64
	store     Store

	mu       sync.RWMutex
	clusters []*Cluster // creation order; ties go to the earliest cluster
}

// Store persists the cluster set between runs.
type Store interface {
	Load() ([]*Cluster, error)
	Save(clusters []*Cluster) error
}

// NewClusterer builds a clusterer seeded from the store. A threshold of 0
// selects the default.
func NewClusterer(store Store, threshold float64) (*Clusterer, error) {
	if threshold == 0 {
		threshold = constants.DefaultClusterThreshold
	}
	c := &Clusterer{
		threshold: threshold,
		store:     store,
	}
	if store != nil {
		clusters, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("could not load face clusters: %w", err)
		}
		c.clusters = clusters
	}
	return c, nil
}

// Add assigns every detection from one file to a cluster. Each descriptor
// joins the cluster whose nearest member is most similar, when that
// similarity reaches the threshold, or starts a new one. Earlier clusters
// win similarity ties.
func (c *Clusterer) Add(fileID string, detections []models.FaceDetection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, det := range detections {
		if len(det.Descriptor) == 0 {
			continue
		}
		c.assign(fileID, det.Descriptor)
	}
}

func (c *Clusterer) assign(fileID string, descriptor []float32) {
	var best *Cluster
	bestSim := 0.0
	for _, cluster := range c.clusters {
		sim := cluster.similarity(descriptor)
		if sim >= c.threshold && sim > bestSim {
			best = cluster
			bestSim = sim
		}
	}

	member := make([]float32, len(descriptor))
	copy(member, descriptor)

	if best == nil {
		c.clusters = append(c.clusters, &Cluster{
			ID:          uuid.New().String(),
			Label:       constants.UnknownClusterLabel,
			Descriptors: [][]float32{member},
			FaceCount:   1,
			FileIDs:     []string{fileID},
		})
		return
	}

	best.Descriptors = append(best.Descriptors, member)
	best.FaceCount++
	if !best.hasFile(fileID) {
		best.FileIDs = append(best.FileIDs, fileID)
	}
}

// Flush persists the current cluster set.
func (c *Clusterer) Flush() error {
	if c.store == nil {
		return nil
	}
	c.mu.RLock()
	clusters := c.snapshotLocked()
	c.mu.RUnlock()
	return c.store.Save(clusters)
}

// List returns the clusters ordered by image count, most seen first.
func (c *Clusterer) List() []*Cluster {
	c.mu.RLock()
	clusters := c.snapshotLocked()
	c.mu.RUnlock()

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].ImageCount() > clusters[j].ImageCount()
	})
	return clusters
}

// Get returns the cluster with the given id.
func (c *Clusterer) Get(id string) (*Cluster, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cluster := range c.clusters {
		if cluster.ID == id {
			return cloneCluster(cluster), true
		}
	}
	return nil, false
}

// SetLabel names a cluster and persists the change.
func (c *Clusterer) SetLabel(id, label string) error {
	return c.update(id, func(cluster *Cluster) {
		cluster.Label = label
	})
}

// SetHidden hides or unhides a cluster and persists the change.
func (c *Clusterer) SetHidden(id string, hidden bool) error {
	return c.update(id, func(cluster *Cluster) {
		cluster.Hidden = hidden
	})
}

func (c *Clusterer) update(id string, apply func(*Cluster)) error {
	c.mu.Lock()
	var found bool
	for _, cluster := range c.clusters {
		if cluster.ID == id {
			apply(cluster)
			found = true
			break
		}
	}
	c.mu.Unlock()

	if !found {
		return fmt.Errorf("unknown face cluster %q", id)
	}
	return c.Flush()
}

// FilesFor returns the file IDs where the labeled identity appears. The
// label match is case-insensitive so search queries find named people.
func (c *Clusterer) FilesFor(label string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := map[string]bool{}
	var files []string
	for _, cluster := range c.clusters {
		if cluster.Hidden || !strings.EqualFold(cluster.Label, label) {
			continue
		}
		for _, id := range cluster.FileIDs {
			if !seen[id] {
				seen[id] = true
				files = append(files, id)
			}
		}
	}
	return files
}

// snapshotLocked requires c.mu to be held.
func (c *Clusterer) snapshotLocked() []*Cluster {
	clusters := make([]*Cluster, len(c.clusters))
	for i, cluster := range c.clusters {
		clusters[i] = cloneCluster(cluster)
	}
	return clusters
}

func cloneCluster(c *Cluster) *Cluster {
	clone := *c
	clone.Descriptors = make([][]float32, len(c.Descriptors))
	for i, d := range c.Descriptors {
		clone.Descriptors[i] = append([]float32(nil), d...)
	}
	clone.FileIDs = append([]string(nil), c.FileIDs...)
	return &clone
}
