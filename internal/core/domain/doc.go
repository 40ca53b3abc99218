// Package domain contains the core business entities for scene
// classification and age-rating aggregation. It has no dependencies on
// adapters or infrastructure.
package domain
