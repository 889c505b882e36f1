/*
Package config loads the YAML settings the demonstration binaries use to
size a ThreadPool, pick track counts and buffer sizes, and configure
logging. The runtime packages themselves never read this package or any
other configuration source; they take plain constructor arguments, so
this package exists solely to drive cmd/mona.
*/
package config
