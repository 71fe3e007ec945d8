package config

type (
	InternalConfig struct {
		App       App
		Satusehat Satusehat
		JWT       JWT
	}

	DriverConfig struct {
		Redis  Redis
		Logger Logger
	}

	App struct {
		Env             string
		Port            string
		Version         string
		EndpointPrefix  string
		MaxRequests     int
		ShutdownTimeout int
	}

	Satusehat struct {
		AuthUrl              string
		BaseUrl              string
		ClientID             string
		ClientSecret         string
		HTTPTimeoutInSeconds int
	}

	JWT struct {
		Secret string
	}

	Redis struct {
		Enabled  bool
		Host     string
		Port     string
		Password string
	}

	Logger struct {
		Level               string
		OutputFileName      string
		OutputErrorFileName string
	}
)
