package neo

import (
	"strings"
	"testing"

	"github.com/winehub/winehub/engine/wine"
)

// The upsert must merge each optional block independently: a record
// with no province still gets its taster relationship. A row-filtering
// WITH ... WHERE on one optional field would drop the record from
// every block after it.
func TestUpsertCypherOptionalBlocksAreIndependent(t *testing.T) {
	if n := strings.Count(upsertCypher, "FOREACH"); n != 2 {
		t.Errorf("optional blocks guarded by %d FOREACH clauses, want 2", n)
	}
	for _, filter := range []string{"WHERE record.province", "WHERE record.taster_name"} {
		if strings.Contains(upsertCypher, filter) {
			t.Errorf("upsert filters rows with %q; null fields would drop the record from later blocks", filter)
		}
	}
	// The taster merge must survive for province-less records.
	if !strings.Contains(upsertCypher, "TASTED_BY") {
		t.Error("upsert lost the taster relationship")
	}
}

func TestRecordMapOptionalFieldsAreNil(t *testing.T) {
	m := recordMap(wine.Record{
		ID:         1,
		Points:     90,
		Title:      "A Wine",
		Country:    "Italy",
		TasterName: "Kerin O'Keefe",
	})
	if m["taster_name"] != "Kerin O'Keefe" {
		t.Errorf("taster_name = %v", m["taster_name"])
	}
	// Nil, not "", so the Cypher IS NOT NULL guards behave.
	for _, key := range []string{"province", "vineyard", "price", "taster_twitter_handle"} {
		if v, ok := m[key]; !ok || v != nil {
			t.Errorf("%s = %v (present=%v), want explicit nil", key, v, ok)
		}
	}
}
