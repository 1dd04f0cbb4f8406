// Package sensor models one physical sensor of a proxied device: the streams
// sharing its name, the controls and recommended processing filters collected
// from them, and the profile set as it moves from raw construction to the
// finalized form streaming uses.
//
// Finalization is pluggable through the Finalizer interface. The default
// implementation validates, de-duplicates and sorts profiles while preserving
// stream identity and calibration through the copy; the device build repairs
// both afterwards regardless, so a lossier implementation stays usable.
//
// Metadata intake is safe from transport goroutines at any time; each stream
// keeps a bounded queue of pending records with oldest-first eviction.
package sensor
