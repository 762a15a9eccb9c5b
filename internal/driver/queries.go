package driver

// Citation graph layout: (:Regulation|:Section {id, title, citation}) nodes
// joined by CITES, AMENDS and IMPLEMENTS relationships pointing from the
// acting instrument to the one it acts on.

var IndexQueries = []string{
	"CREATE INDEX ON :Regulation(id);",
	"CREATE INDEX ON :Section(id);",
	"CREATE INDEX ON :Regulation(title);",
}

const (
	ListNodesQuery = `
		MATCH (n)
		WHERE n:Regulation OR n:Section
		RETURN n.id AS id, n.title AS title, n.citation AS citation,
			CASE WHEN n:Section THEN 'section' ELSE 'regulation' END AS kind
	`

	EdgesIntoQuery = `
		MATCH (s)-[e]->(t)
		WHERE t.id IN $target_ids AND type(e) IN $rel_types
			AND (s:Regulation OR s:Section)
		RETURN s.id AS source_id, t.id AS target_id, type(e) AS rel_type
		ORDER BY source_id, target_id, rel_type
	`

	SaveRegulationQuery = `
		MERGE (n:Regulation {id: $id})
		SET n.title = $title,
			n.citation = $citation
		RETURN n.id AS id
	`

	SaveSectionQuery = `
		MERGE (n:Section {id: $id})
		SET n.title = $title,
			n.citation = $citation
		RETURN n.id AS id
	`

	// Relationship types cannot be parameterised in Cypher; the %s is
	// filled from model.EdgeKind.RelType only.
	SaveEdgeQueryTemplate = `
		MATCH (s {id: $source_id})
		MATCH (t {id: $target_id})
		MERGE (s)-[e:%s]->(t)
		RETURN type(e) AS rel_type
	`

	DeleteNodeQuery = `
		MATCH (n {id: $id})
		DETACH DELETE n
	`
)
