package datagen

import "time"

// General struct that stores global options from command line args
type General struct {
	Help    bool `long:"help" description:"show this help message"`
	Version bool `short:"v" long:"version" description:"print the tool version and exit"`
	Quiet   bool `short:"q" long:"quiet" description:"quieter output"`
}

// Connection struct that stores info on connection from command line args
type Connection struct {
	URI      string        `long:"uri" value-name:"<uri>" description:"mongodb connection string URI, used with '-o mongodb'" default:"mongodb://127.0.0.1:27017"`
	Database string        `short:"d" long:"database" value-name:"<database>" description:"mongodb database to write to" default:"mockbuilder"`
	DSN      string        `long:"dsn" value-name:"<dsn>" description:"data source name of a sql database, used with\n '-o sqlite | postgres | mysql'" default:"mockbuilder.db"`
	Timeout  time.Duration `long:"timeout" value-name:"<duration>" description:"timeout of the whole run, 0 for no timeout"`
}

// Configuration struct that stores info on config file from command line args
type Configuration struct {
	ConfigFile  string `short:"f" long:"file" value-name:"<configfile>" description:"JSON or YAML config file. This field is required\n"`
	Append      bool   `short:"a" long:"append" description:"if present, keep existing mongodb collections instead\n of dropping them"`
	BatchSize   int    `short:"b" long:"batchsize" value-name:"<size>" description:"number of instances generated between two progress\n bar updates" default:"1000"`
	Seed        uint64 `short:"s" long:"seed" value-name:"<seed>" description:"specific seed to use. Passing the same seed garantees\n the same output for every run with the same config.\n Has to be in [1, 18446744073709551615]"`
	Output      string `short:"o" long:"output" value-name:"<output>" description:"where instances should be written. Options are:\n - stdout (default)\n - sqlite | postgres | mysql\n - mongodb\n - filename"`
	PrettyPrint bool   `long:"prettyprint" description:"if present, indent the output. Only for stdout or file\n output"`
}

// Template struct that stores info on config file to generate
type Template struct {
	New string `long:"new" value-name:"<filename>" description:"create a template configuration file"`
}

// Options struct to store flags from CLI
type Options struct {
	Template      `group:"template"`
	Configuration `group:"configuration"`
	Connection    `group:"connection infos"`
	General       `group:"general"`
}
