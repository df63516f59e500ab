package domain

// StopGroup is one physical arrival: a location plus every package dropped there.
// Packages keep their import order.
type StopGroup struct {
	StopID   int
	Coords   Coordinates
	Packages []DeliveryPoint
}

// Count is the number of packages at the stop.
func (s StopGroup) Count() int { return len(s.Packages) }

// PackageIDs lists the package ids at the stop in import order.
func (s StopGroup) PackageIDs() []string {
	ids := make([]string, 0, len(s.Packages))
	for _, p := range s.Packages {
		ids = append(ids, p.PackageID)
	}
	return ids
}

// Cluster is a territory produced by the divider. IDs are dense and ordered by depot distance.
type Cluster struct {
	ID     int
	Center Coordinates
	Stops  []StopGroup
}

// PackageCount sums the packages over every stop of the cluster.
func (c Cluster) PackageCount() int {
	n := 0
	for _, s := range c.Stops {
		n += s.Count()
	}
	return n
}
