package tsengine

const configSchema = `{
  "type": "object",
  "description": "Configuration for the time-series rollup storage engine.",
  "properties": {
    "run-in-memory": {
      "description": "Back the store with a private temporary file that is removed on close, instead of a file under data-directory; useful for tests and ephemeral benchmarks.",
      "type": "boolean"
    },
    "data-directory": {
      "description": "Directory the engine's primary database file lives in. Ignored when run-in-memory is set.",
      "type": "string"
    },
    "temp-path": {
      "description": "Scratch directory path. Accepted and decoded; the engine does not read it.",
      "type": "string"
    },
    "journal-path": {
      "description": "Journal directory path. Accepted and decoded; the engine does not read it.",
      "type": "string"
    },
    "allow-incremental-backups": {
      "description": "Incremental-backup flag. Accepted and decoded; the engine does not read it and takes no backups.",
      "type": "boolean"
    }
  },
  "if": {
    "properties": {
      "run-in-memory": { "const": true }
    },
    "required": ["run-in-memory"]
  },
  "then": {},
  "else": {
    "required": ["data-directory"]
  }
}`
