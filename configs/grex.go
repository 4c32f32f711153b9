package configs

// ServerVersion is the protocol version. Requests must carry it
// verbatim.
const ServerVersion = "3.2.4"

// Schema validates config files before any value is read.
const Schema = `
	addr?: string
	port?: int
	origins?: [...string]
	max_conns?: int
	exec_timeout?: number
	exec_mem_limit?: int
	rand_seed?: int
	float_precision?: int
	local?: bool
`
