// Package userkit manages the admin users of a CMS: their identity, their roles
// and the plugins (admin feature modules) each of them may use.
//
// # Core Concepts
//
// User: an admin account identified by a unique, normalized username.
//
// Role: a named tag shared by users. Titles are canonicalized by capitalizing each
// underscore separated word ("translator_admin" is stored as "TranslatorAdmin") and
// then compared case-sensitively. Two roles are built in: every admin holds
// Refinery, and Superuser sees every registered plugin.
//
// Plugin: a feature module registered in a process-wide Catalog at startup. A
// plugin can be hidden from the menu or always allowed for every user.
//
// Grant: an explicit, ordered permission for one user to use one plugin.
//
// # Authorization
//
// A user's authorized plugins are its grants plus the catalog's always-allowed
// plugins. Its active plugins are the registered plugins it is authorized for,
// or all of them for a superuser. The landing URL is the URL of the first
// active plugin shown in the menu.
//
// # Basic Usage
//
//	// 1. Register plugins (at application startup)
//	catalog := userkit.NewCatalog()
//	catalog.Register("refinery_dashboard").Title("Dashboard").URL("/refinery").AlwaysAllowed().
//	    Register("refinery_pages").Title("Pages").URL("/refinery/pages").
//	    Register("refinery_images").Title("Images").URL("/refinery/images")
//
//	// 2. Create the store and the service
//	store, _ := userkit.OpenPostgresStore(databaseURL, userkit.DefaultPoolConfig())
//	store.Migrate(ctx)
//	service := userkit.NewService(catalog, store, userkit.WithLogger(logger))
//
//	// 3. Bootstrap the first user: it becomes Superuser
//	admin := &userkit.User{Username: "Admin", Email: "admin@example.com"}
//	ok, err := service.CreateFirst(ctx, admin)
//
//	// 4. Manage grants
//	service.SetPlugins(ctx, editor, []string{"refinery_pages"})
//
//	// 5. Check access
//	access, _ := service.Access(ctx, editor)
//	access.HasPlugin("refinery_images") // false
//	access.LandingURL()                 // "/refinery"
//
// # Middleware Usage
//
//	mw := userkit.NewMiddleware(service)
//	mux.Handle("/refinery/pages/", mw.RequirePlugin("refinery_pages")(pagesHandler))
//	mux.Handle("/refinery/users/", mw.RequireSuperuser()(usersHandler))
//	mux.Handle("/refinery/", mw.LandingRedirect("/refinery/no-plugins"))
//
// # Audit Log
//
// User creation, updates and deletion, role additions, grants, revocations and
// reset token generation are logged in the same transaction as the change, with
// the actor and the request metadata (IP, user agent, request ID) taken from the
// context.
package userkit
