// Package domain defines the records the system persists and publishes:
// spaces, files, messages and task rows, with their status encodings and
// validation.
package domain
