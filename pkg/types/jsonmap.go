package types

// JSONMap stores loosely keyed metadata as a jsonb column.
type JSONMap map[string]any

// StringSlice stores a list of strings as a jsonb column.
type StringSlice []string
