// Package services contains the core pipeline stages: rule prescreen,
// retrieval, context augmentation, classification with fallback, rating
// aggregation and feedback incorporation.
package services
