package domain

// KeyPrefix namespaces every key citeqa writes to a shared key-value store.
const KeyPrefix = "citeqa:"
