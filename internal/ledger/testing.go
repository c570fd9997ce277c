package ledger

import "encoding/json"

// SeedRecord is a test helper that stores rec directly in an in-memory contract.
func SeedRecord(c *InMemoryContract, rec HashRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.UserID] = payload
}

// SeedRaw stores payload under userID without any validation.
func SeedRaw(c *InMemoryContract, userID string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[userID] = append([]byte(nil), payload...)
}
