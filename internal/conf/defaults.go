// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

var keplerFeatures = []string{
	"koi_period", "koi_time0bk", "koi_impact", "koi_duration", "koi_depth",
	"koi_prad", "koi_teq", "koi_insol", "koi_dor", "koi_count",
	"koi_numtransits", "koi_tranflag", "koi_model_snr", "koi_steff", "koi_slogg",
}

var tessFeatures = []string{
	"ra", "dec", "st_pmra", "st_pmdec", "pl_tranmid", "pl_orbper",
	"pl_trandurh", "pl_trandep", "pl_rade", "pl_insol", "pl_eqt",
	"st_tmag", "st_dist", "st_teff", "st_logg", "st_rad",
}

var defaultSearchPaths = []string{"", "../Assets", "Assets", "./Assets", "../Datasets", "Datasets"}

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("main.name", "exoplanet-go")

	viper.SetDefault("webserver.host", "")
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.allowedorigins", []string{})
	viper.SetDefault("webserver.bodylimit", "1M")
	viper.SetDefault("webserver.readtimeout", 30*time.Second)
	viper.SetDefault("webserver.writetimeout", 60*time.Second)
	viper.SetDefault("webserver.shutdowntimeout", 10*time.Second)
	viper.SetDefault("webserver.debug", false)

	viper.SetDefault("datasets.kepler.enabled", true)
	viper.SetDefault("datasets.kepler.title", "Kepler")
	viper.SetDefault("datasets.kepler.idfield", "koi_name")
	viper.SetDefault("datasets.kepler.idcolumn", "kepoi_name")
	viper.SetDefault("datasets.kepler.disposition", "koi_disposition")
	viper.SetDefault("datasets.kepler.secondarykey", "kepid")
	viper.SetDefault("datasets.kepler.csvfile", "clean_kepler_dataset.csv")
	viper.SetDefault("datasets.kepler.optionsfile", "kepler_options.txt")
	viper.SetDefault("datasets.kepler.searchpaths", defaultSearchPaths)
	viper.SetDefault("datasets.kepler.features", keplerFeatures)
	viper.SetDefault("datasets.kepler.model.backend", "logistic")
	viper.SetDefault("datasets.kepler.model.path", "models/kepler_logistic.yaml")
	viper.SetDefault("datasets.kepler.lightcurve.prefix", "KIC")
	viper.SetDefault("datasets.kepler.lightcurve.author", "Kepler")

	viper.SetDefault("datasets.tess.enabled", true)
	viper.SetDefault("datasets.tess.title", "TESS")
	viper.SetDefault("datasets.tess.idfield", "toi_name")
	viper.SetDefault("datasets.tess.idcolumn", "toi")
	viper.SetDefault("datasets.tess.secondarykey", "tid")
	viper.SetDefault("datasets.tess.csvfile", "clean_tess_dataset.csv")
	viper.SetDefault("datasets.tess.optionsfile", "tess_options.txt")
	viper.SetDefault("datasets.tess.searchpaths", defaultSearchPaths)
	viper.SetDefault("datasets.tess.features", tessFeatures)
	viper.SetDefault("datasets.tess.model.backend", "placeholder")
	viper.SetDefault("datasets.tess.lightcurve.prefix", "TIC")
	viper.SetDefault("datasets.tess.lightcurve.author", "SPOC")

	viper.SetDefault("datastore.sqlite.enabled", true)
	viper.SetDefault("datastore.sqlite.path", "predictions.db")
	viper.SetDefault("datastore.mysql.enabled", false)
	viper.SetDefault("datastore.mysql.host", "localhost")
	viper.SetDefault("datastore.mysql.port", "3306")
	viper.SetDefault("datastore.mysql.database", "exoplanet")
	viper.SetDefault("datastore.slowquerythreshold", 200*time.Millisecond)

	viper.SetDefault("lightcurve.enabled", true)
	viper.SetDefault("lightcurve.archiveurl", "https://archive.example.org/api/v1/lightcurves")
	viper.SetDefault("lightcurve.timeout", 30*time.Second)
	viper.SetDefault("lightcurve.segmentlimit", 3)
	viper.SetDefault("lightcurve.reducedmode", false)
	viper.SetDefault("lightcurve.defaultkey", 123456)
	viper.SetDefault("lightcurve.sigmaclip", 5.0)
	viper.SetDefault("lightcurve.flattenwindow", 101)
	viper.SetDefault("lightcurve.binpoints", 500)
	viper.SetDefault("lightcurve.cachettl", time.Hour)
	viper.SetDefault("lightcurve.ratelimit", 1.0)
	viper.SetDefault("lightcurve.rateburst", 5)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)

	viper.SetDefault("metrics.enabled", true)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
}
