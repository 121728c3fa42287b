/*
Package config loads the zoned server configuration from a YAML file.

Every key is optional; missing keys keep the values returned by Default.
Command line flags on zoned serve are applied over the loaded values.

	zones_dir: zones            # directory of *.zone files
	geoip_db: ""                # MaxMind City database, empty disables geo ranking
	listen: ":53"               # DNS, UDP and TCP
	api_listen: 127.0.0.1:8053  # management API, empty disables it
	api_read_only: false
	journal:
	  backend: file             # file or bolt
	  dir: ""                   # defaults to <zones_dir>/changes
	watch: false                # reload zone files edited on disk
	watch_delay: 500ms
	geo_types: [A]
	max_redirects: 10
	query_timeout: 2s
	probe_interval: 30s         # DNS self-probe, 0 disables it
	log:
	  level: info
	  json: false
*/
package config
