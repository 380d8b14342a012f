package elasticsearch

// DefaultIndexName is the default index used for catalog documents.
const DefaultIndexName = "storefront_products"

// buildIndexMapping returns the mapping for the catalog index. Ranking
// happens in the service, so text fields only need keyword subfields for
// exact lookups; position carries catalog order.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "id":             { "type": "long" },
      "position":       { "type": "long" },
      "name":           { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "slug":           { "type": "keyword" },
      "category":       { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "tags":           { "type": "keyword" },
      "description":    { "type": "text" },
      "price":          { "type": "long" },
      "original_price": { "type": "long" },
      "is_new":         { "type": "boolean" },
      "is_sale":        { "type": "boolean" },
      "in_stock":       { "type": "boolean" },
      "rating":         { "type": "float" },
      "review_count":   { "type": "integer" },
      "images":         { "type": "keyword", "index": false }
    }
  }
}`
}
