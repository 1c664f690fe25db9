// Package launcher starts the external processes requested by executable pipeline elements.
//
// A launch is a single attempt: the process is started, waited for and its exit status is
// checked before Launch returns. Standard output and error are captured in bounded buffers,
// so a chatty process never blocks on a full pipe and never exhausts memory.
package launcher
