package outbox

const familyUpdatedSchema = `{
  "type": "object",
  "title": "FamilyUpdated",
  "properties": {
    "event_id": {"type": "string"},
    "family_id": {"type": "string"},
    "revision": {"type": "integer"},
    "document": {
      "type": "object",
      "properties": {
        "Dad": {"type": "object"},
        "Son": {"type": "object"},
        "lastUpdated": {"type": "string"},
        "dailyGoals": {"type": "object", "additionalProperties": {"type": "integer"}}
      },
      "required": ["Dad", "Son", "lastUpdated"]
    },
    "updated_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "family_id", "revision", "document", "updated_at"],
  "additionalProperties": false
}`
