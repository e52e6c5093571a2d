package autoload

// Import all middleware subpackages for side-effect registration.
import (
	_ "planos/middlewares/greeting"
	_ "planos/middlewares/localcache"
	_ "planos/middlewares/quickevent"
	_ "planos/middlewares/tokenbudget"
)
