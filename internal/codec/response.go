package codec

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Row is one record of a statement's result, already split into the
// caller's requested column order.
type Row struct {
	Columns []string
	Values  []any
}

// Stats mirrors the write counters of a neo4j.ResultSummary, rendered only
// when the statement asked for includeStats.
type Stats struct {
	NodesCreated          int  `json:"nodes_created"`
	NodesDeleted          int  `json:"nodes_deleted"`
	RelationshipsCreated  int  `json:"relationships_created"`
	RelationshipsDeleted  int  `json:"relationships_deleted"`
	PropertiesSet         int  `json:"properties_set"`
	LabelsAdded           int  `json:"labels_added"`
	LabelsRemoved         int  `json:"labels_removed"`
	IndexesAdded          int  `json:"indexes_added"`
	IndexesRemoved        int  `json:"indexes_removed"`
	ConstraintsAdded      int  `json:"constraints_added"`
	ConstraintsRemoved    int  `json:"constraints_removed"`
	ContainsUpdates       bool `json:"contains_updates"`
	ContainsSystemUpdates bool `json:"contains_system_updates"`
	SystemUpdates         int  `json:"system_updates"`
}

// StatsFromCounters renders a result summary's counters into Stats.
func StatsFromCounters(c neo4j.Counters) Stats {
	return Stats{
		NodesCreated:          c.NodesCreated(),
		NodesDeleted:          c.NodesDeleted(),
		RelationshipsCreated:  c.RelationshipsCreated(),
		RelationshipsDeleted:  c.RelationshipsDeleted(),
		PropertiesSet:         c.PropertiesSet(),
		LabelsAdded:           c.LabelsAdded(),
		LabelsRemoved:         c.LabelsRemoved(),
		IndexesAdded:          c.IndexesAdded(),
		IndexesRemoved:        c.IndexesRemoved(),
		ConstraintsAdded:      c.ConstraintsAdded(),
		ConstraintsRemoved:    c.ConstraintsRemoved(),
		ContainsUpdates:       c.ContainsUpdates(),
		ContainsSystemUpdates: c.ContainsSystemUpdates(),
		SystemUpdates:         c.SystemUpdates(),
	}
}

// entityMeta is the legacy view's per-value descriptor: present for every
// node or relationship in a row, parallel in position to the row's values.
type entityMeta struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Deleted bool   `json:"deleted"`
}

// LegacyData is one entry of the legacy `data` array: a row of values in
// column order plus the parallel meta array describing any entities in it.
type LegacyData struct {
	Row   []any      `json:"row"`
	Meta  []any      `json:"meta"`
	Graph *GraphJSON `json:"graph,omitempty"`
}

// LegacyResult is the rendered shape of one statement under the legacy
// `application/json` view.
type LegacyResult struct {
	Columns []string     `json:"columns"`
	Data    []LegacyData `json:"data"`
	Stats   *Stats       `json:"stats,omitempty"`
}

// GraphJSON is the deduplicated node/relationship projection attached to a
// row (or, in the batch container, to the whole result) when GRAPH format
// was requested.
type GraphJSON struct {
	Nodes         []graphNodeJSON `json:"nodes"`
	Relationships []graphRelJSON  `json:"relationships"`
}

type graphNodeJSON struct {
	ID     string         `json:"id"`
	Labels []string       `json:"labels"`
	Props  map[string]any `json:"properties"`
}

type graphRelJSON struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	StartNode string         `json:"startNode"`
	EndNode   string         `json:"endNode"`
	Props     map[string]any `json:"properties"`
}

// RenderLegacyRow renders one record's values into the legacy row/meta
// pair. Nodes and relationships are rendered as their bare property map in
// row, with their identity and kind reported in the parallel meta entry;
// every other value (including scalars and embedded temporals) renders
// through EncodeValue exactly as the new-format view does, since the
// legacy API never defined its own encoding for extended types.
func RenderLegacyRow(values []any, wantGraph bool) LegacyData {
	row := make([]any, len(values))
	meta := make([]any, len(values))
	var collector *graphCollector
	if wantGraph {
		collector = newGraphCollector()
	}

	for i, v := range values {
		switch val := v.(type) {
		case neo4j.Node:
			row[i] = encodeProps(val.Props)
			meta[i] = entityMeta{ID: val.Id, Type: "node"}
			if collector != nil {
				collector.addNode(val)
			}
		case neo4j.Relationship:
			row[i] = encodeProps(val.Props)
			meta[i] = entityMeta{ID: val.Id, Type: "relationship"}
			if collector != nil {
				collector.addRel(val)
			}
		case neo4j.Path:
			row[i] = EncodeValue(val)
			meta[i] = nil
			if collector != nil {
				collector.addPath(val)
			}
		default:
			row[i] = EncodeValue(v)
			meta[i] = nil
		}
	}

	data := LegacyData{Row: row, Meta: meta}
	if collector != nil {
		data.Graph = collector.result()
	}
	return data
}

// graphCollector deduplicates nodes and relationships referenced across the
// rows of a single statement's result by their element ID.
type graphCollector struct {
	nodes    map[string]graphNodeJSON
	rels     map[string]graphRelJSON
	nodeSeen []string
	relSeen  []string
}

func newGraphCollector() *graphCollector {
	return &graphCollector{
		nodes: map[string]graphNodeJSON{},
		rels:  map[string]graphRelJSON{},
	}
}

func (g *graphCollector) addNode(n neo4j.Node) {
	if _, ok := g.nodes[n.ElementId]; ok {
		return
	}
	g.nodes[n.ElementId] = graphNodeJSON{
		ID:     n.ElementId,
		Labels: n.Labels,
		Props:  encodeProps(n.Props),
	}
	g.nodeSeen = append(g.nodeSeen, n.ElementId)
}

func (g *graphCollector) addRel(r neo4j.Relationship) {
	if _, ok := g.rels[r.ElementId]; ok {
		return
	}
	g.rels[r.ElementId] = graphRelJSON{
		ID:        r.ElementId,
		Type:      r.Type,
		StartNode: r.StartElementId,
		EndNode:   r.EndElementId,
		Props:     encodeProps(r.Props),
	}
	g.relSeen = append(g.relSeen, r.ElementId)
}

func (g *graphCollector) addPath(p neo4j.Path) {
	for _, n := range p.Nodes {
		g.addNode(n)
	}
	for _, r := range p.Relationships {
		g.addRel(r)
	}
}

func (g *graphCollector) result() *GraphJSON {
	out := &GraphJSON{
		Nodes:         make([]graphNodeJSON, 0, len(g.nodeSeen)),
		Relationships: make([]graphRelJSON, 0, len(g.relSeen)),
	}
	for _, id := range g.nodeSeen {
		out.Nodes = append(out.Nodes, g.nodes[id])
	}
	for _, id := range g.relSeen {
		out.Relationships = append(out.Relationships, g.rels[id])
	}
	return out
}

// StreamRecord is one line of the streaming `application/x-ndjson` view: a
// single record rendered entirely through the new-format value encoding,
// with no row/meta split.
type StreamRecord struct {
	Row []any `json:"row"`
}

// RenderStreamRecord renders one record's values for the streaming view.
// Unlike the legacy view, nodes and relationships carry their full
// extended-type wrapper (labels or relationship type, plus properties, are
// folded into the $type envelope by EncodeValue; no ID is included) since
// streaming clients are expected to
// understand the new-format type system.
func RenderStreamRecord(values []any) StreamRecord {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = EncodeValue(v)
	}
	return StreamRecord{Row: row}
}

// StreamSummary is the terminal ndjson line of a streamed statement,
// carrying stats (when requested) and any notifications the plan raised.
type StreamSummary struct {
	Stats         *Stats         `json:"stats,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
}

// Notification mirrors the fields of a neo4j.Notification a client cares
// about: a deprecation or performance warning raised while planning or
// running the statement.
type Notification struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// RenderNotifications adapts the driver's notification slice, one entry per
// notification in input order; entries with an empty severity are kept.
func RenderNotifications(raw []neo4j.Notification) []Notification {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Notification, 0, len(raw))
	for _, n := range raw {
		out = append(out, Notification{
			Code:        n.Code(),
			Title:       n.Title(),
			Description: n.Description(),
			Severity:    n.Severity(),
		})
	}
	return out
}
