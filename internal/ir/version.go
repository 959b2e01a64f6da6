package ir

// ToolVersion is the bibcite version reported by the CLI.
const ToolVersion = "0.1.0"
