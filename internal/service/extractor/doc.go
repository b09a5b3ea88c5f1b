// Package extractor unpacks a downloaded artifact into a target directory.
//
// It is what the generated install script calls for every artifact. Zip
// archives are unpacked entry by entry, any other file is copied as is.
// Every file is swapped in with go-update so executables that are still
// mapped by a running process can be replaced. Optionally it first waits
// for the owner application to exit.
package extractor
