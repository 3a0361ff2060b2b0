/*
Package config loads generation templates and run settings.

# Templates

Templates are YAML or JSON files using the field names of the template
model (eventNodes, identifiers, randomSeed):

	tmpl, err := config.LoadTemplate("pallet.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	graph, err := epcisgen.Compile(tmpl)

Unknown fields are rejected so typos surface before generation.

# Settings

Run settings come from a loosely typed map so a settings file may carry
keys for other tools:

	cfg, err := config.FromFile("epcisgen.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	settings, err := cfg.Settings()
	run, err := graph.NewRun(settings.RunOptions(logger)...)

Accessors (String, Int, Int64, Bool, Duration) return the default if a key
is missing or has the wrong type:

	timeout := cfg.Duration("writeTimeout", 10*time.Second)

Duration accepts a time.ParseDuration string or a number of seconds.
*/
package config
